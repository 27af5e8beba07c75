package silence

import (
	"encoding/binary"
	"time"
)

// Defaults for the direct scan.
const (
	DefaultChunkSize  = 1024
	DefaultThreshold  = 0.05
	DefaultMinSilence = 500 * time.Millisecond
	// FallbackSampleRate is used when the input sample rate cannot be probed.
	FallbackSampleRate = 16000
)

// ScanOptions configures Scan.
type ScanOptions struct {
	// ChunkSize is the number of samples averaged per loudness decision.
	ChunkSize int
	// Threshold is the mean absolute amplitude (0..1) below which a chunk is silent.
	Threshold float64
	// MinSilenceSamples is the minimum run length, in samples, that counts as silence.
	MinSilenceSamples int
}

// DefaultScanOptions returns the scan settings for audio at sampleRate.
func DefaultScanOptions(sampleRate int) ScanOptions {
	if sampleRate <= 0 {
		sampleRate = FallbackSampleRate
	}
	return ScanOptions{
		ChunkSize:         DefaultChunkSize,
		Threshold:         DefaultThreshold,
		MinSilenceSamples: int(float64(sampleRate) * DefaultMinSilence.Seconds()),
	}
}

// SampleRun is a silent run expressed in sample indices, End exclusive.
type SampleRun struct {
	Start int
	End   int
}

// Interval converts the run to timeline positions at sampleRate.
func (r SampleRun) Interval(sampleRate int) Interval {
	return Interval{
		Start: samplesToDuration(r.Start, sampleRate),
		End:   samplesToDuration(r.End, sampleRate),
	}
}

func samplesToDuration(n, sampleRate int) time.Duration {
	return time.Duration(int64(n) * int64(time.Second) / int64(sampleRate))
}

// DecodePCM16 reads little-endian signed 16-bit mono samples. A trailing odd
// byte is dropped.
func DecodePCM16(raw []byte) []int16 {
	n := len(raw) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return samples
}

// Scan walks samples in fixed chunks and returns the silent runs.
//
// A run that closes mid-stream qualifies when it spans at least
// MinSilenceSamples/ChunkSize whole chunks. A run still open at the end of
// the stream qualifies when it spans at least MinSilenceSamples samples.
func Scan(samples []int16, opts ScanOptions) []SampleRun {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	minChunks := opts.MinSilenceSamples / opts.ChunkSize

	runs := make([]SampleRun, 0)
	start := -1

	for i := 0; i < len(samples); i += opts.ChunkSize {
		end := min(i+opts.ChunkSize, len(samples))
		quiet := meanAbs(samples[i:end]) < opts.Threshold

		switch {
		case quiet && start < 0:
			start = i
		case !quiet && start >= 0:
			if (i-start)/opts.ChunkSize >= minChunks {
				runs = append(runs, SampleRun{Start: start, End: i})
			}
			start = -1
		}
	}

	if start >= 0 && len(samples)-start >= opts.MinSilenceSamples {
		runs = append(runs, SampleRun{Start: start, End: len(samples)})
	}

	return runs
}

func meanAbs(chunk []int16) float64 {
	if len(chunk) == 0 {
		return 0
	}
	var sum float64
	for _, s := range chunk {
		v := float64(s) / 32768.0
		if v < 0 {
			v = -v
		}
		sum += v
	}
	return sum / float64(len(chunk))
}

// Detect decodes raw PCM bytes and returns silent intervals on the timeline.
func Detect(raw []byte, sampleRate int, opts ScanOptions) []Interval {
	if sampleRate <= 0 {
		sampleRate = FallbackSampleRate
	}
	runs := Scan(DecodePCM16(raw), opts)
	intervals := make([]Interval, 0, len(runs))
	for _, r := range runs {
		intervals = append(intervals, r.Interval(sampleRate))
	}
	return intervals
}
