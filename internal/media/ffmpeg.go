package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/maauso/chapterize/internal/timestamp"
)

// Static errors for media operations.
var (
	// ErrInvalidClipStart is returned when a clip would start before the audio.
	ErrInvalidClipStart = errors.New("invalid clip start: must not be negative")
	// ErrMissingMergeInput is returned when a merge lacks audio, metadata or output.
	ErrMissingMergeInput = errors.New("merge requires audio, metadata and output paths")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// copySuffixes are inputs whose AAC stream can be copied into an M4B as is.
var copySuffixes = map[string]bool{
	".aac": true,
	".m4a": true,
	".m4b": true,
}

// FFmpegProcessor implements Processor using the ffmpeg CLI.
type FFmpegProcessor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

var _ Processor = (*FFmpegProcessor)(nil)

// NewFFmpegProcessor creates a new FFmpegProcessor.
// Empty paths default to "ffmpeg" and "ffprobe" (found via PATH).
func NewFFmpegProcessor(ffmpegPath, ffprobePath string) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// ExtractClip cuts ClipLength of audio starting at start. Seeking happens
// after the input is opened so the cut is sample accurate.
func (p *FFmpegProcessor) ExtractClip(ctx context.Context, src string, start time.Duration, dst string) error {
	if start < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidClipStart, start)
	}

	args := []string{
		"-y",
		"-v", "error",
		"-i", src,
		"-ss", timestamp.Format(start),
		"-t", strconv.FormatFloat(ClipLength.Seconds(), 'f', -1, 64),
		"-vn",
		dst,
	}
	return p.runFFmpeg(ctx, args)
}

// Merge builds the output container. Inputs already carrying AAC are stream
// copied; anything else is transcoded to AAC at 192 kb/s.
func (p *FFmpegProcessor) Merge(ctx context.Context, in MergeInput) error {
	if in.AudioPath == "" || in.MetadataPath == "" || in.OutputPath == "" {
		return ErrMissingMergeInput
	}
	return p.runFFmpeg(ctx, mergeArgs(in))
}

func mergeArgs(in MergeInput) []string {
	args := []string{
		"-y",
		"-i", in.AudioPath,
		"-i", in.MetadataPath,
	}
	if in.CoverPath != "" {
		args = append(args, "-i", in.CoverPath)
	}

	args = append(args,
		"-map", "0:a",
		"-map_metadata", "1",
		"-map_chapters", "1",
	)

	if in.CoverPath != "" {
		args = append(args,
			"-map", "2",
			"-disposition:v", "attached_pic",
			"-metadata:s:v", "title=Album cover",
			"-metadata:s:v", "comment=Cover (front)",
		)
	}

	if copySuffixes[strings.ToLower(filepath.Ext(in.AudioPath))] {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	}

	if in.CoverPath != "" {
		args = append(args, "-c:v", "mjpeg")
	}

	return append(args, in.OutputPath)
}

// DumpMetadata runs ffmpeg's ffmetadata muxer and returns its output.
func (p *FFmpegProcessor) DumpMetadata(ctx context.Context, path string) (string, error) {
	args := []string{
		"-v", "error",
		"-i", path,
		"-f", "ffmetadata",
		"-",
	}

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return "", &FFmpegError{Args: args, Stderr: stderr.String(), Err: err}
	}

	return stdout.String(), nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// GetMediaDuration returns the duration of a media file using ffprobe.
func (p *FFmpegProcessor) GetMediaDuration(ctx context.Context, path string) (time.Duration, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return timestamp.Seconds(seconds), nil
}
