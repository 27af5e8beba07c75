// Package silence finds silent stretches in audio, either by scanning raw
// PCM samples directly or by reading the report printed by ffmpeg's
// silencedetect filter.
package silence

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInterval is returned when an interval does not satisfy start < end.
var ErrInvalidInterval = errors.New("silence: interval start must be before end")

// Interval is a detected silent stretch on the audio timeline.
type Interval struct {
	Start time.Duration
	End   time.Duration
}

// NewInterval builds an Interval, rejecting empty or reversed ranges.
func NewInterval(start, end time.Duration) (Interval, error) {
	if start >= end {
		return Interval{}, fmt.Errorf("%w: start=%s end=%s", ErrInvalidInterval, start, end)
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns the length of the silence.
func (i Interval) Duration() time.Duration {
	return i.End - i.Start
}
