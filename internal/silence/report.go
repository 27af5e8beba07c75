package silence

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/maauso/chapterize/internal/timestamp"
)

var (
	startRe = regexp.MustCompile(`silence_start:\s*(-?\d+(?:\.\d*)?)`)
	endRe   = regexp.MustCompile(`silence_end:\s*(-?\d+(?:\.\d*)?)`)
)

// ParseReport reads ffmpeg silencedetect output and pairs the i-th
// silence_start with the i-th silence_end. Unmatched trailing values are
// ignored, negative values clamp to zero and pairs with start >= end are
// dropped.
func ParseReport(r io.Reader) ([]Interval, error) {
	var starts, ends []float64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := startRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				starts = append(starts, max(v, 0))
			}
		}
		if m := endRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				ends = append(ends, max(v, 0))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("silence: read report: %w", err)
	}

	n := min(len(starts), len(ends))
	intervals := make([]Interval, 0, n)
	for i := 0; i < n; i++ {
		iv, err := NewInterval(timestamp.Seconds(starts[i]), timestamp.Seconds(ends[i]))
		if err != nil {
			continue
		}
		intervals = append(intervals, iv)
	}
	return intervals, nil
}
