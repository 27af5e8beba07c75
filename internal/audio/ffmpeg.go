package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/maauso/chapterize/internal/silence"
)

// Static errors for audio analysis.
var (
	// ErrInputNotFound is returned when the input file does not exist.
	ErrInputNotFound = errors.New("audio: input file does not exist")
	// ErrInvalidSampleRate is returned when a sample rate is not positive.
	ErrInvalidSampleRate = errors.New("audio: sample rate must be positive")
)

// FFmpegAnalyzer implements Analyzer using the ffmpeg and ffprobe CLIs.
type FFmpegAnalyzer struct {
	ffmpegPath  string
	ffprobePath string
}

// Verify interface implementation at compile time.
var _ Analyzer = (*FFmpegAnalyzer)(nil)

// NewFFmpegAnalyzer creates a new FFmpegAnalyzer.
// Empty paths default to "ffmpeg" and "ffprobe" found in PATH.
func NewFFmpegAnalyzer(ffmpegPath, ffprobePath string) *FFmpegAnalyzer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegAnalyzer{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// SilenceReport runs silencedetect and parses the report ffmpeg prints on stderr.
func (a *FFmpegAnalyzer) SilenceReport(ctx context.Context, inputPath string, opts ReportOpts) ([]silence.Interval, error) {
	if err := checkInput(inputPath); err != nil {
		return nil, err
	}

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, a.ffmpegPath,
		"-hide_banner",
		"-nostats",
		"-i", inputPath,
		"-af", silenceFilter(opts),
		"-f", "null",
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg silencedetect: %w, stderr: %s", err, stderr.String())
	}

	return silence.ParseReport(&stderr)
}

func silenceFilter(opts ReportOpts) string {
	return fmt.Sprintf("silencedetect=noise=%sdB:d=%s",
		strconv.FormatFloat(opts.NoiseDB, 'f', -1, 64),
		strconv.FormatFloat(opts.MinSilence.Seconds(), 'f', -1, 64),
	)
}

// SampleRate probes the sample rate of the first audio stream.
func (a *FFmpegAnalyzer) SampleRate(ctx context.Context, inputPath string) (int, error) {
	if err := checkInput(inputPath); err != nil {
		return 0, err
	}

	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, a.ffprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("ffprobe sample rate: %w, stderr: %s", err, stderr.String())
	}

	rate, err := strconv.Atoi(strings.TrimSpace(stdout.String()))
	if err != nil {
		return 0, fmt.Errorf("parse sample rate %q: %w", strings.TrimSpace(stdout.String()), err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSampleRate, rate)
	}
	return rate, nil
}

// DecodePCM decodes the file to mono s16le at sampleRate.
func (a *FFmpegAnalyzer) DecodePCM(ctx context.Context, inputPath string, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}
	if err := checkInput(inputPath); err != nil {
		return nil, err
	}

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, a.ffmpegPath,
		"-v", "error",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-acodec", "pcm_s16le",
		"-f", "s16le",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg decode: %w, stderr: %s", err, stderr.String())
	}

	return stdout.Bytes(), nil
}

func checkInput(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}
	return nil
}
