// Package audio provides the ffmpeg-backed collaborators that turn an audio
// file into silence intervals: a decoder for raw PCM and a runner for the
// silencedetect filter.
package audio

import (
	"context"
	"time"

	"github.com/maauso/chapterize/internal/silence"
)

// ReportOpts configures ffmpeg's silencedetect filter.
type ReportOpts struct {
	// NoiseDB is the level in dBFS below which audio counts as silence.
	// Default: -60 dBFS.
	NoiseDB float64

	// MinSilence is the shortest silence the filter reports.
	// Default: 1 second.
	MinSilence time.Duration
}

// DefaultReportOpts returns the default silencedetect settings.
func DefaultReportOpts() ReportOpts {
	return ReportOpts{
		NoiseDB:    -60,
		MinSilence: time.Second,
	}
}

// SilenceReporter runs an external silence detector over a file.
type SilenceReporter interface {
	SilenceReport(ctx context.Context, inputPath string, opts ReportOpts) ([]silence.Interval, error)
}

// PCMDecoder turns an audio file into mono signed 16-bit little-endian PCM.
type PCMDecoder interface {
	// SampleRate probes the first audio stream's sample rate.
	SampleRate(ctx context.Context, inputPath string) (int, error)

	// DecodePCM resamples to sampleRate and returns the raw sample bytes.
	DecodePCM(ctx context.Context, inputPath string, sampleRate int) ([]byte, error)
}

// Analyzer combines both detection paths.
type Analyzer interface {
	SilenceReporter
	PCMDecoder
}
