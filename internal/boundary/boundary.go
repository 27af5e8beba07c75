// Package boundary picks chapter boundaries from detected silences.
package boundary

import (
	"slices"
	"time"

	"github.com/maauso/chapterize/internal/silence"
)

// Select ranks intervals by duration (longest first, ties keep detection
// order), skips the first consumed entries, takes the next wanted entries and
// returns their end positions in timeline order.
//
// A pool smaller than consumed+wanted yields a shorter list. Negative counts
// are treated as zero.
func Select(intervals []silence.Interval, wanted, consumed int) []time.Duration {
	wanted = max(wanted, 0)
	consumed = max(consumed, 0)

	ranked := slices.Clone(intervals)
	slices.SortStableFunc(ranked, func(a, b silence.Interval) int {
		return cmpDesc(a.Duration(), b.Duration())
	})

	if consumed >= len(ranked) {
		return []time.Duration{}
	}
	picked := ranked[consumed:min(consumed+wanted, len(ranked))]

	slices.SortStableFunc(picked, func(a, b silence.Interval) int {
		return cmpAsc(a.Start, b.Start)
	})

	ends := make([]time.Duration, 0, len(picked))
	for _, iv := range picked {
		ends = append(ends, iv.End)
	}
	return ends
}

func cmpAsc(a, b time.Duration) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpDesc(a, b time.Duration) int {
	return cmpAsc(b, a)
}
