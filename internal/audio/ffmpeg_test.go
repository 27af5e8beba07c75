package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// checkFFmpeg skips test if ffmpeg or ffprobe is not available.
func checkFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}
}

// createTestWAV creates a 16 kHz mono WAV of durationSec seconds of tone with
// digital silence inserted at each [start, duration] pair.
func createTestWAV(t *testing.T, outputPath string, durationSec float64, silenceAt [][2]float64) {
	t.Helper()

	var inputs []string
	parts := 0
	current := 0.0

	for _, s := range silenceAt {
		if s[0] > current {
			inputs = append(inputs, "-f", "lavfi", "-i", "sine=frequency=440:sample_rate=16000:duration="+formatDuration(s[0]-current))
			parts++
		}
		inputs = append(inputs, "-f", "lavfi", "-i", "anullsrc=channel_layout=mono:sample_rate=16000:duration="+formatDuration(s[1]))
		parts++
		current = s[0] + s[1]
	}
	if current < durationSec {
		inputs = append(inputs, "-f", "lavfi", "-i", "sine=frequency=440:sample_rate=16000:duration="+formatDuration(durationSec-current))
		parts++
	}

	var concat string
	for i := 0; i < parts; i++ {
		concat += "[" + strconv.Itoa(i) + ":a]"
	}
	concat += "concat=n=" + strconv.Itoa(parts) + ":v=0:a=1[out]"

	args := append(inputs,
		"-filter_complex", concat,
		"-map", "[out]",
		"-ar", "16000", "-ac", "1",
		"-y", outputPath,
	)

	out, _ := exec.Command("ffmpeg", args...).CombinedOutput()
	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		t.Fatalf("failed to create test WAV: %s", string(out))
	}
}

func formatDuration(sec float64) string {
	return fmt.Sprintf("%.3f", sec)
}

func TestFFmpegAnalyzer_SilenceReport(t *testing.T) {
	checkFFmpeg(t)

	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "book.wav")
	createTestWAV(t, inputPath, 12, [][2]float64{{3, 1.5}, {8, 2}})

	analyzer := NewFFmpegAnalyzer("", "")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	intervals, err := analyzer.SilenceReport(ctx, inputPath, DefaultReportOpts())
	if err != nil {
		t.Fatalf("SilenceReport failed: %v", err)
	}

	if len(intervals) != 2 {
		t.Fatalf("expected 2 intervals, got %d: %v", len(intervals), intervals)
	}

	want := [][2]float64{{3, 4.5}, {8, 10}}
	for i, iv := range intervals {
		if d := iv.Start.Seconds() - want[i][0]; d > 0.1 || d < -0.1 {
			t.Errorf("interval %d start = %v, want ~%vs", i, iv.Start, want[i][0])
		}
		if d := iv.End.Seconds() - want[i][1]; d > 0.1 || d < -0.1 {
			t.Errorf("interval %d end = %v, want ~%vs", i, iv.End, want[i][1])
		}
	}
}

func TestFFmpegAnalyzer_SilenceReport_MinSilenceFilters(t *testing.T) {
	checkFFmpeg(t)

	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "short-gap.wav")
	createTestWAV(t, inputPath, 6, [][2]float64{{2, 0.5}})

	intervals, err := NewFFmpegAnalyzer("", "").SilenceReport(context.Background(), inputPath, DefaultReportOpts())
	if err != nil {
		t.Fatalf("SilenceReport failed: %v", err)
	}
	if len(intervals) != 0 {
		t.Errorf("expected no intervals for a half second gap, got %v", intervals)
	}
}

func TestFFmpegAnalyzer_SampleRateAndDecode(t *testing.T) {
	checkFFmpeg(t)

	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "tone.wav")
	createTestWAV(t, inputPath, 2, nil)

	analyzer := NewFFmpegAnalyzer("", "")
	ctx := context.Background()

	rate, err := analyzer.SampleRate(ctx, inputPath)
	if err != nil {
		t.Fatalf("SampleRate failed: %v", err)
	}
	if rate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", rate)
	}

	pcm, err := analyzer.DecodePCM(ctx, inputPath, 8000)
	if err != nil {
		t.Fatalf("DecodePCM failed: %v", err)
	}
	// 2 seconds at 8 kHz, 2 bytes per sample; allow resampler padding.
	if got := len(pcm); got < 31000 || got > 33000 {
		t.Errorf("decoded %d bytes, want about 32000", got)
	}
}

func TestFFmpegAnalyzer_ContextCancellation(t *testing.T) {
	checkFFmpeg(t)

	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "test.wav")
	createTestWAV(t, inputPath, 3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewFFmpegAnalyzer("", "").SilenceReport(ctx, inputPath, DefaultReportOpts()); err == nil {
		t.Error("expected error with cancelled context")
	}
}

func TestFFmpegAnalyzer_NonExistentFile(t *testing.T) {
	analyzer := NewFFmpegAnalyzer("", "")
	ctx := context.Background()

	if _, err := analyzer.SilenceReport(ctx, "/nonexistent/book.mp3", DefaultReportOpts()); !errors.Is(err, ErrInputNotFound) {
		t.Errorf("SilenceReport error = %v, want ErrInputNotFound", err)
	}
	if _, err := analyzer.SampleRate(ctx, "/nonexistent/book.mp3"); !errors.Is(err, ErrInputNotFound) {
		t.Errorf("SampleRate error = %v, want ErrInputNotFound", err)
	}
	if _, err := analyzer.DecodePCM(ctx, "/nonexistent/book.mp3", 16000); !errors.Is(err, ErrInputNotFound) {
		t.Errorf("DecodePCM error = %v, want ErrInputNotFound", err)
	}
}

func TestFFmpegAnalyzer_DecodePCM_InvalidRate(t *testing.T) {
	_, err := NewFFmpegAnalyzer("", "").DecodePCM(context.Background(), "whatever.wav", 0)
	if !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("expected ErrInvalidSampleRate, got %v", err)
	}
}

func TestSilenceFilter(t *testing.T) {
	tests := []struct {
		opts ReportOpts
		want string
	}{
		{DefaultReportOpts(), "silencedetect=noise=-60dB:d=1"},
		{ReportOpts{NoiseDB: -45.5, MinSilence: 750 * time.Millisecond}, "silencedetect=noise=-45.5dB:d=0.75"},
	}
	for _, tt := range tests {
		if got := silenceFilter(tt.opts); got != tt.want {
			t.Errorf("silenceFilter(%+v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}

func TestDefaultReportOpts(t *testing.T) {
	opts := DefaultReportOpts()

	if opts.NoiseDB != -60 {
		t.Errorf("NoiseDB: got %f, want -60", opts.NoiseDB)
	}
	if opts.MinSilence != time.Second {
		t.Errorf("MinSilence: got %v, want 1s", opts.MinSilence)
	}
}

func TestNewFFmpegAnalyzer_DefaultPaths(t *testing.T) {
	a := NewFFmpegAnalyzer("", "")
	if a.ffmpegPath != "ffmpeg" || a.ffprobePath != "ffprobe" {
		t.Errorf("unexpected default paths: %q %q", a.ffmpegPath, a.ffprobePath)
	}

	a = NewFFmpegAnalyzer("/opt/ffmpeg", "/opt/ffprobe")
	if a.ffmpegPath != "/opt/ffmpeg" || a.ffprobePath != "/opt/ffprobe" {
		t.Errorf("unexpected custom paths: %q %q", a.ffmpegPath, a.ffprobePath)
	}
}
