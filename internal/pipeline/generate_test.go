package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/chapterize/internal/chapters"
	"github.com/maauso/chapterize/internal/classifier"
	"github.com/maauso/chapterize/internal/run"
	"github.com/maauso/chapterize/internal/silence"
	"github.com/maauso/chapterize/internal/storage"
)

type fixture struct {
	analyzer   *mockAnalyzer
	processor  *mockProcessor
	tags       *mockTags
	classifier *mockClassifier
	store      *storage.LocalStorage
	repo       *run.MemoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return &fixture{
		analyzer:   &mockAnalyzer{},
		processor:  &mockProcessor{},
		tags:       &mockTags{},
		classifier: &mockClassifier{},
		store:      store,
		repo:       run.NewMemoryRepository(),
	}
}

func (f *fixture) service(opts ...Option) *Service {
	return NewService(f.analyzer, f.processor, f.tags, f.store, f.repo, opts...)
}

// writeClip makes the mocked ExtractClip produce a file at its destination.
func writeClip(args mock.Arguments) {
	_ = os.WriteFile(args.String(3), []byte("clip-bytes"), 0600)
}

func sec(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func interval(start, end float64) silence.Interval {
	return silence.Interval{Start: sec(start), End: sec(end)}
}

func intPtr(n int) *int { return &n }

func TestGenerate_FallbackNamesByPosition(t *testing.T) {
	f := newFixture(t)
	f.analyzer.On("SilenceReport", mock.Anything, "book.mp3", mock.Anything).Return([]silence.Interval{
		interval(10, 11),
		interval(100, 104),
		interval(50, 53),
		interval(200, 202),
	}, nil)

	svc := f.service()
	out, err := svc.Generate(context.Background(), GenerateInput{AudioPath: "book.mp3", Wanted: 2, Extra: intPtr(0)})
	require.NoError(t, err)

	assert.False(t, out.Classified)
	assert.Equal(t, 4, out.Silences)
	assert.Equal(t, 2, out.Candidates)
	assert.Equal(t, []chapters.Chapter{
		{ID: "1", Time: sec(53), Title: "Chapter 1"},
		{ID: "2", Time: sec(104), Title: "Chapter 2"},
	}, out.Chapters)

	saved, err := svc.GetRun(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusCompleted, saved.Status)
	assert.Len(t, saved.Chapters, 2)

	f.processor.AssertNotCalled(t, "ExtractClip", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.analyzer.AssertExpectations(t)
}

func TestGenerate_ExtraAndSkip(t *testing.T) {
	f := newFixture(t)
	f.analyzer.On("SilenceReport", mock.Anything, "book.mp3", mock.Anything).Return([]silence.Interval{
		interval(10, 15),
		interval(20, 24),
		interval(30, 33),
		interval(40, 42),
		interval(50, 51),
	}, nil)

	svc := f.service(WithExtraCandidates(1))
	out, err := svc.Generate(context.Background(), GenerateInput{AudioPath: "book.mp3", Wanted: 2, Skip: 1})
	require.NoError(t, err)

	require.Len(t, out.Chapters, 3)
	assert.Equal(t, sec(24), out.Chapters[0].Time)
	assert.Equal(t, sec(33), out.Chapters[1].Time)
	assert.Equal(t, sec(42), out.Chapters[2].Time)
}

func TestGenerate_ClassifiesAndValidates(t *testing.T) {
	f := newFixture(t)
	f.analyzer.On("SilenceReport", mock.Anything, "book.mp3", mock.Anything).Return([]silence.Interval{
		interval(10, 12),
		interval(60, 63),
		interval(120, 124),
		interval(180, 185),
	}, nil)

	titles := []string{"Prologue", "Chapter One", "Chapter Two"}
	var clipPath string
	f.processor.On("ExtractClip", mock.Anything, "book.mp3", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			clipPath = args.String(3)
			writeClip(args)
		}).Return(nil)

	clip := classifier.Clip{Data: []byte("clip-bytes"), MIMEType: clipMIME}
	f.classifier.On("Classify", mock.Anything, clip, titles).
		Return(classifier.Result{ContainsChapter: true, Chapter: "Prologue "}, nil).Once()
	f.classifier.On("Classify", mock.Anything, clip, titles).
		Return(classifier.Result{}, errors.New("service unavailable")).Once()
	f.classifier.On("Classify", mock.Anything, clip, titles).
		Return(classifier.Result{ContainsChapter: true, Chapter: "Chapter Ninety"}, nil).Once()
	f.classifier.On("Classify", mock.Anything, clip, titles).
		Return(classifier.Result{ContainsChapter: true, Chapter: "Chapter Two"}, nil).Once()

	svc := f.service(WithClassifier(f.classifier), WithExtraCandidates(0))
	out, err := svc.Generate(context.Background(), GenerateInput{AudioPath: "book.mp3", Titles: titles, Wanted: 4})
	require.NoError(t, err)

	assert.True(t, out.Classified)
	assert.Equal(t, 4, out.Candidates)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 1, out.Downgraded)
	assert.Equal(t, []chapters.Chapter{
		{ID: "1", Time: sec(12), Title: "Prologue"},
		{ID: "2", Time: sec(185), Title: "Chapter Two"},
	}, out.Chapters)

	require.NotEmpty(t, clipPath)
	assert.Equal(t, filepath.Join(f.store.TempDir(), "clip"+clipExt), clipPath)
	_, statErr := os.Stat(clipPath)
	assert.True(t, os.IsNotExist(statErr), "clip should be removed after the run")

	f.processor.AssertNumberOfCalls(t, "ExtractClip", 4)
	f.classifier.AssertExpectations(t)
}

func TestGenerate_ExtractionFailureSkipsBoundary(t *testing.T) {
	f := newFixture(t)
	f.analyzer.On("SilenceReport", mock.Anything, "book.mp3", mock.Anything).Return([]silence.Interval{
		interval(10, 12),
		interval(60, 63),
	}, nil)

	f.processor.On("ExtractClip", mock.Anything, "book.mp3", sec(12), mock.Anything).
		Return(errors.New("ffmpeg failed"))
	f.processor.On("ExtractClip", mock.Anything, "book.mp3", sec(63), mock.Anything).
		Run(writeClip).Return(nil)
	f.classifier.On("Classify", mock.Anything, mock.Anything, mock.Anything).
		Return(classifier.Result{ContainsChapter: true, Chapter: "One"}, nil)

	svc := f.service(WithClassifier(f.classifier), WithExtraCandidates(0))
	out, err := svc.Generate(context.Background(), GenerateInput{AudioPath: "book.mp3", Titles: []string{"One"}, Wanted: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, []chapters.Chapter{{ID: "1", Time: sec(63), Title: "One"}}, out.Chapters)
	f.classifier.AssertNumberOfCalls(t, "Classify", 1)
}

func TestGenerate_CancellationAbortsRun(t *testing.T) {
	f := newFixture(t)
	f.analyzer.On("SilenceReport", mock.Anything, "book.mp3", mock.Anything).Return([]silence.Interval{
		interval(10, 12),
		interval(60, 63),
		interval(120, 124),
	}, nil)
	f.processor.On("ExtractClip", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(writeClip).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.classifier.On("Classify", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(classifier.Result{}, context.Canceled).Once()

	svc := f.service(WithClassifier(f.classifier), WithExtraCandidates(0))
	_, err := svc.Generate(ctx, GenerateInput{AudioPath: "book.mp3", Titles: []string{"One"}, Wanted: 3})
	require.ErrorIs(t, err, context.Canceled)

	f.classifier.AssertNumberOfCalls(t, "Classify", 1)

	runs, err := svc.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.StatusFailed, runs[0].Status)
	assert.Equal(t, 0, runs[0].Processed)

	_, statErr := os.Stat(filepath.Join(f.store.TempDir(), "clip"+clipExt))
	assert.True(t, os.IsNotExist(statErr), "clip should be removed after a failed run")
}

func TestGenerate_DetectionFailureFailsRun(t *testing.T) {
	f := newFixture(t)
	f.analyzer.On("SilenceReport", mock.Anything, "book.mp3", mock.Anything).
		Return(nil, errors.New("silencedetect failed"))

	svc := f.service()
	_, err := svc.Generate(context.Background(), GenerateInput{AudioPath: "book.mp3", Wanted: 1})
	require.ErrorContains(t, err, "detect silences")

	runs, err := svc.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.StatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "silencedetect failed")
}

func TestGenerate_NoSilences(t *testing.T) {
	f := newFixture(t)
	f.analyzer.On("SilenceReport", mock.Anything, "book.mp3", mock.Anything).Return([]silence.Interval{}, nil)

	svc := f.service(WithClassifier(f.classifier))
	out, err := svc.Generate(context.Background(), GenerateInput{AudioPath: "book.mp3", Titles: []string{"One"}, Wanted: 3})
	require.NoError(t, err)

	assert.NotNil(t, out.Chapters)
	assert.Empty(t, out.Chapters)
	f.classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerate_ScanMode(t *testing.T) {
	const rate = silence.FallbackSampleRate
	chunk := silence.DefaultChunkSize

	samples := make([]int16, 0, 48*chunk)
	for i := 0; i < 16*chunk; i++ {
		samples = append(samples, 20000)
	}
	for i := 0; i < 16*chunk; i++ {
		samples = append(samples, 0)
	}
	for i := 0; i < 16*chunk; i++ {
		samples = append(samples, -20000)
	}
	raw := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(s))
	}

	f := newFixture(t)
	f.analyzer.On("SampleRate", mock.Anything, "book.wav").Return(0, errors.New("ffprobe missing"))
	f.analyzer.On("DecodePCM", mock.Anything, "book.wav", rate).Return(raw, nil)

	svc := f.service(WithDetectionMode(ModeScan))
	out, err := svc.Generate(context.Background(), GenerateInput{AudioPath: "book.wav", Wanted: 1})
	require.NoError(t, err)

	require.Len(t, out.Chapters, 1)
	assert.Equal(t, 2048*time.Millisecond, out.Chapters[0].Time)
	f.analyzer.AssertNotCalled(t, "SilenceReport", mock.Anything, mock.Anything, mock.Anything)
	f.analyzer.AssertExpectations(t)
}

func TestGenerate_InputValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	tests := []struct {
		name string
		in   GenerateInput
	}{
		{"missing audio", GenerateInput{Wanted: 1}},
		{"zero wanted", GenerateInput{AudioPath: "book.mp3"}},
		{"negative skip", GenerateInput{AudioPath: "book.mp3", Wanted: 1, Skip: -1}},
		{"negative extra", GenerateInput{AudioPath: "book.mp3", Wanted: 1, Extra: intPtr(-2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestGenerate_TitlesRequiredWithClassifier(t *testing.T) {
	f := newFixture(t)
	svc := f.service(WithClassifier(f.classifier))

	_, err := svc.Generate(context.Background(), GenerateInput{AudioPath: "book.mp3", Wanted: 1, Titles: []string{" ", ""}})
	assert.ErrorIs(t, err, ErrTitlesRequired)
	f.analyzer.AssertNotCalled(t, "SilenceReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceOptions(t *testing.T) {
	f := newFixture(t)

	svc := f.service()
	assert.Equal(t, ModeReport, svc.mode)
	assert.Equal(t, DefaultExtraCandidates, svc.extra)
	assert.Nil(t, svc.limiter)
	assert.False(t, svc.ClassifierEnabled())

	svc = f.service(
		WithDetectionMode("bogus"),
		WithExtraCandidates(-1),
		WithRateLimit(30),
		WithClassifier(f.classifier),
		WithLogger(nil),
	)
	assert.Equal(t, ModeReport, svc.mode)
	assert.Equal(t, DefaultExtraCandidates, svc.extra)
	require.NotNil(t, svc.limiter)
	assert.InDelta(t, 0.5, float64(svc.limiter.Limit()), 1e-9)
	assert.True(t, svc.ClassifierEnabled())
	assert.NotNil(t, svc.logger)
}
