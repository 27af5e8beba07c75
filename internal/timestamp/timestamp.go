// Package timestamp converts between textual timestamps, floating point
// seconds and time.Duration values used across the chapter pipeline.
package timestamp

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Static errors for time-base conversion.
var (
	// ErrInvalidTimeBase is returned when a time base is not a positive N/D fraction.
	ErrInvalidTimeBase = errors.New("timestamp: invalid time base")
	// ErrOutOfRange is returned when a converted value does not fit a time.Duration.
	ErrOutOfRange = errors.New("timestamp: value out of range")
)

// Form records which textual form a timestamp was parsed from.
type Form int

const (
	// FormUnparseable means neither form matched; the value is zero.
	FormUnparseable Form = iota
	// FormColon is the "H:M:S" form with fractional seconds allowed in each field.
	FormColon
	// FormSeconds is a bare floating point number of seconds.
	FormSeconds
)

// String returns a short name for the form.
func (f Form) String() string {
	switch f {
	case FormColon:
		return "colon"
	case FormSeconds:
		return "seconds"
	default:
		return "unparseable"
	}
}

// Parsed is the result of Parse. Value is zero when Form is FormUnparseable.
type Parsed struct {
	Value time.Duration
	Form  Form
}

// OK reports whether the input matched one of the accepted forms.
func (p Parsed) OK() bool {
	return p.Form != FormUnparseable
}

// Parse reads "H:M:S" (exactly three colon separated fields) first and falls
// back to plain seconds. Input that matches neither yields FormUnparseable.
func Parse(s string) Parsed {
	s = strings.TrimSpace(s)

	if parts := strings.Split(s, ":"); len(parts) == 3 {
		var fields [3]float64
		ok := true
		for i, p := range parts {
			v, err := parseFloat(p)
			if err != nil {
				ok = false
				break
			}
			fields[i] = v
		}
		if ok {
			total := fields[0]*3600 + fields[1]*60 + fields[2]
			if !InRange(total) {
				return Parsed{}
			}
			return Parsed{
				Value: Seconds(total),
				Form:  FormColon,
			}
		}
	}

	if v, err := parseFloat(s); err == nil && InRange(v) {
		return Parsed{Value: Seconds(v), Form: FormSeconds}
	}

	return Parsed{}
}

// ParseOrZero is Parse without the form tag.
func ParseOrZero(s string) time.Duration {
	return Parse(s).Value
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// maxSeconds is the whole-second magnitude a Duration can hold.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// InRange reports whether sec is finite and fits a time.Duration.
func InRange(sec float64) bool {
	return !math.IsNaN(sec) && !math.IsInf(sec, 0) && math.Abs(sec) < maxSeconds
}

// Seconds converts floating point seconds to a Duration rounded to the
// microsecond. Input outside InRange converts to zero.
func Seconds(sec float64) time.Duration {
	if !InRange(sec) {
		return 0
	}
	return time.Duration(math.Round(sec*1e6)) * time.Microsecond
}

// Format renders d as H:MM:SS, with a six digit fraction when d has a
// sub-second part. The hour field is not bounded to a day.
func Format(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}

	us := d.Microseconds()
	hours := us / 3_600_000_000
	minutes := (us / 60_000_000) % 60
	secs := (us / 1_000_000) % 60
	frac := us % 1_000_000

	if frac == 0 {
		return fmt.Sprintf("%s%d:%02d:%02d", sign, hours, minutes, secs)
	}
	return fmt.Sprintf("%s%d:%02d:%02d.%06d", sign, hours, minutes, secs, frac)
}

// Milliseconds truncates d to whole milliseconds.
func Milliseconds(d time.Duration) int64 {
	return d.Milliseconds()
}

// ParseTimeBase reads a "N/D" rational time base. Both parts must be
// positive integers.
func ParseTimeBase(s string) (num, den int64, err error) {
	n, d, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeBase, s)
	}
	num, err = strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	if err != nil || num <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeBase, s)
	}
	den, err = strconv.ParseInt(strings.TrimSpace(d), 10, 64)
	if err != nil || den <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeBase, s)
	}
	return num, den, nil
}

// FromTicks converts a tick count in the num/den time base to a Duration,
// truncating toward zero at nanosecond precision.
func FromTicks(ticks, num, den int64) (time.Duration, error) {
	if num <= 0 || den <= 0 {
		return 0, fmt.Errorf("%w: %d/%d", ErrInvalidTimeBase, num, den)
	}

	v := new(big.Int).SetInt64(ticks)
	v.Mul(v, big.NewInt(num))
	v.Mul(v, big.NewInt(int64(time.Second)))
	v.Quo(v, big.NewInt(den))

	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: %d ticks at %d/%d", ErrOutOfRange, ticks, num, den)
	}
	return time.Duration(v.Int64()), nil
}
