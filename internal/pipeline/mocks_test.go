package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/maauso/chapterize/internal/audio"
	"github.com/maauso/chapterize/internal/classifier"
	"github.com/maauso/chapterize/internal/media"
	"github.com/maauso/chapterize/internal/silence"
)

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) SilenceReport(ctx context.Context, inputPath string, opts audio.ReportOpts) ([]silence.Interval, error) {
	args := m.Called(ctx, inputPath, opts)
	intervals, _ := args.Get(0).([]silence.Interval)
	return intervals, args.Error(1)
}

func (m *mockAnalyzer) SampleRate(ctx context.Context, inputPath string) (int, error) {
	args := m.Called(ctx, inputPath)
	return args.Int(0), args.Error(1)
}

func (m *mockAnalyzer) DecodePCM(ctx context.Context, inputPath string, sampleRate int) ([]byte, error) {
	args := m.Called(ctx, inputPath, sampleRate)
	raw, _ := args.Get(0).([]byte)
	return raw, args.Error(1)
}

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ExtractClip(ctx context.Context, src string, start time.Duration, dst string) error {
	args := m.Called(ctx, src, start, dst)
	return args.Error(0)
}

func (m *mockProcessor) Merge(ctx context.Context, in media.MergeInput) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *mockProcessor) GetMediaDuration(ctx context.Context, path string) (time.Duration, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(time.Duration), args.Error(1)
}

func (m *mockProcessor) DumpMetadata(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

type mockTags struct {
	mock.Mock
}

func (m *mockTags) ReadTags(ctx context.Context, path string) (media.Tags, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(media.Tags), args.Error(1)
}

func (m *mockTags) ExtractCover(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	cover, _ := args.Get(0).([]byte)
	return cover, args.Error(1)
}

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, clip classifier.Clip, titles []string) (classifier.Result, error) {
	args := m.Called(ctx, clip, titles)
	return args.Get(0).(classifier.Result), args.Error(1)
}
