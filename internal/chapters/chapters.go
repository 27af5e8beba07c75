// Package chapters defines the chapter record shared by the detector, the
// metadata codec and the CLI.
package chapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/maauso/chapterize/internal/timestamp"
)

// Document defaults used when metadata carries no title or author.
const (
	DefaultTitle  = "Untitled Audiobook"
	DefaultAuthor = "Unknown Author"
)

// Static errors for chapter construction.
var (
	// ErrNegativeTime is returned when a chapter would start before the timeline.
	ErrNegativeTime = errors.New("chapters: time must not be negative")
	// ErrEmptyTitle is returned when a chapter has no title.
	ErrEmptyTitle = errors.New("chapters: title is required")
	// ErrInvalidTime is returned when a JSON chapter time cannot be read.
	ErrInvalidTime = errors.New("chapters: invalid time")
)

// Chapter is a titled position on the audio timeline.
type Chapter struct {
	ID    string
	Time  time.Duration
	Title string
}

// New builds a chapter with a 1-based positional ID.
func New(position int, at time.Duration, title string) (Chapter, error) {
	if at < 0 {
		return Chapter{}, fmt.Errorf("%w: %s", ErrNegativeTime, at)
	}
	if strings.TrimSpace(title) == "" {
		return Chapter{}, ErrEmptyTitle
	}
	return Chapter{ID: strconv.Itoa(position), Time: at, Title: title}, nil
}

// DefaultName is the title given to an accepted boundary when no classifier
// is configured.
func DefaultName(n int) string {
	return fmt.Sprintf("Chapter %d", n)
}

// Renumber rewrites IDs as 1..n in slice order.
func Renumber(list []Chapter) []Chapter {
	out := make([]Chapter, len(list))
	for i, c := range list {
		c.ID = strconv.Itoa(i + 1)
		out[i] = c
	}
	return out
}

// Document is the decoded content of a metadata block.
type Document struct {
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Chapters []Chapter `json:"chapters"`
}

type chapterJSON struct {
	ID        string  `json:"id"`
	Time      float64 `json:"time"`
	Timestamp string  `json:"timestamp,omitempty"`
	Title     string  `json:"title"`
}

// MarshalJSON encodes Time as floating point seconds alongside a readable
// timestamp.
func (c Chapter) MarshalJSON() ([]byte, error) {
	return json.Marshal(chapterJSON{
		ID:        c.ID,
		Time:      c.Time.Seconds(),
		Timestamp: timestamp.Format(c.Time),
		Title:     c.Title,
	})
}

// UnmarshalJSON accepts the form written by MarshalJSON. Time may also be a
// string in either timestamp form ("0:10:0" or "600"); a string that parses
// as neither is an error. The timestamp field is used only when time is
// absent.
func (c *Chapter) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Time      json.RawMessage `json:"time"`
		Timestamp string          `json:"timestamp"`
		Title     string          `json:"title"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}

	var at time.Duration
	switch {
	case len(raw.Time) > 0 && string(raw.Time) != "null":
		at, err = decodeTime(raw.Time)
		if err != nil {
			return err
		}
	case raw.Timestamp != "":
		at = timestamp.ParseOrZero(raw.Timestamp)
	}

	*c = Chapter{ID: id, Time: at, Title: raw.Title}
	return nil
}

// decodeTime accepts floating point seconds or a timestamp string.
func decodeTime(raw json.RawMessage) (time.Duration, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		p := timestamp.Parse(s)
		if !p.OK() {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
		}
		return p.Value, nil
	}

	var sec float64
	if err := json.Unmarshal(raw, &sec); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTime, raw)
	}
	if !timestamp.InRange(sec) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTime, sec)
	}
	return timestamp.Seconds(sec), nil
}

// decodeID accepts either a JSON string or a JSON number.
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("chapters: invalid id %s", raw)
	}
	return n.String(), nil
}
