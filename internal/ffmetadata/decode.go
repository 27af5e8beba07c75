// Package ffmetadata reads and writes ffmpeg's FFMETADATA1 text format,
// restricted to the document title, author and chapter list.
package ffmetadata

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/maauso/chapterize/internal/chapters"
	"github.com/maauso/chapterize/internal/timestamp"
)

const (
	// Header is the first line of every metadata block.
	Header = ";FFMETADATA1"

	chapterMarker = "[CHAPTER]"
)

// ffmpeg assumes nanoseconds when a chapter omits TIMEBASE.
const (
	defaultTimeBaseNum = 1
	defaultTimeBaseDen = 1_000_000_000
)

// record accumulates one [CHAPTER] section.
type record struct {
	num, den int64
	baseOK   bool

	start    time.Duration
	hasStart bool
	title    string
	hasTitle bool
}

func newRecord() *record {
	return &record{num: defaultTimeBaseNum, den: defaultTimeBaseDen, baseOK: true}
}

// Decode parses a metadata block. It never fails: a missing title or author
// falls back to the defaults and chapter sections lacking a usable START or
// title are dropped.
//
// The document title and author come from the first title= and artist= lines
// of the global section. Inside a chapter, TIMEBASE=N/D scales every later
// START= value of that chapter.
func Decode(text string) chapters.Document {
	doc, _ := DecodeReader(strings.NewReader(text))
	return doc
}

// DecodeReader is Decode over a stream. Only read errors are returned.
func DecodeReader(r io.Reader) (chapters.Document, error) {
	doc := chapters.Document{Chapters: make([]chapters.Chapter, 0)}
	var haveTitle, haveAuthor bool

	var current *record
	global := true

	flush := func() {
		if current == nil || !current.hasStart || !current.hasTitle {
			return
		}
		doc.Chapters = append(doc.Chapters, chapters.Chapter{
			ID:    strconv.Itoa(len(doc.Chapters) + 1),
			Time:  current.start,
			Title: current.title,
		})
	}

	lines := newLineReader(r)
	for lines.next() {
		line := lines.text()
		if line == "" || line[0] == ';' || line[0] == '#' {
			continue
		}

		if line[0] == '[' {
			flush()
			current = nil
			global = false
			if strings.HasPrefix(line, chapterMarker) {
				current = newRecord()
			}
			continue
		}

		key, value, ok := cutUnescaped(line, '=')
		if !ok {
			continue
		}
		key, value = unescape(key), unescape(value)

		switch {
		case global:
			switch key {
			case "title":
				if !haveTitle {
					doc.Title, haveTitle = value, true
				}
			case "artist":
				if !haveAuthor {
					doc.Author, haveAuthor = value, true
				}
			}
		case current != nil:
			current.apply(key, value)
		}
	}
	if err := lines.err(); err != nil {
		return chapters.Document{}, fmt.Errorf("ffmetadata: read: %w", err)
	}
	flush()

	if !haveTitle {
		doc.Title = chapters.DefaultTitle
	}
	if !haveAuthor {
		doc.Author = chapters.DefaultAuthor
	}
	return doc, nil
}

func (r *record) apply(key, value string) {
	switch key {
	case "TIMEBASE":
		num, den, err := timestamp.ParseTimeBase(value)
		r.num, r.den, r.baseOK = num, den, err == nil
	case "START":
		r.hasStart = false
		if !r.baseOK {
			return
		}
		ticks, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return
		}
		at, err := timestamp.FromTicks(ticks, r.num, r.den)
		if err != nil || at < 0 {
			return
		}
		r.start, r.hasStart = at, true
	case "title":
		r.title, r.hasTitle = value, true
	}
}

// lineReader yields logical lines, joining a line that ends in an escaped
// newline with the one that follows.
type lineReader struct {
	scanner *bufio.Scanner
	line    string
}

func newLineReader(r io.Reader) *lineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &lineReader{scanner: s}
}

func (l *lineReader) next() bool {
	var b strings.Builder
	read := false
	for l.scanner.Scan() {
		read = true
		part := strings.TrimSuffix(l.scanner.Text(), "\r")
		if trailingBackslashes(part)%2 == 1 {
			b.WriteString(part)
			b.WriteByte('\n')
			continue
		}
		b.WriteString(part)
		l.line = b.String()
		return true
	}
	if read {
		l.line = b.String()
		return true
	}
	return false
}

func (l *lineReader) text() string { return l.line }

func (l *lineReader) err() error { return l.scanner.Err() }

func trailingBackslashes(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n
}

// cutUnescaped splits s around the first sep not preceded by a backslash escape.
func cutUnescaped(s string, sep byte) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
