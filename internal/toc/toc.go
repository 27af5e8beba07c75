// Package toc loads an audiobook's table of contents from disk.
//
// Three layouts are accepted, chosen by file extension:
//
//	.json  ["Prologue", "Chapter One"] or {"title": ..., "author": ..., "titles": [...]}
//	.toml  title = "...", author = "...", titles = ["Prologue", "Chapter One"]
//	other  one title per line; blank lines and lines starting with # are ignored
package toc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrEmpty is returned when a table of contents has no titles.
var ErrEmpty = errors.New("toc: no titles")

// TOC is the parsed table of contents. Title and Author are optional.
type TOC struct {
	Title  string   `json:"title" toml:"title"`
	Author string   `json:"author" toml:"author"`
	Titles []string `json:"titles" toml:"titles"`
}

// Load reads and parses the file at path.
func Load(path string) (TOC, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the command line
	if err != nil {
		return TOC{}, fmt.Errorf("read toc: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var t TOC
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		t, err = parseJSON(data)
	case ".toml":
		t, err = parseTOML(data)
	default:
		t, err = parseLines(data)
	}
	if err != nil {
		return TOC{}, err
	}

	t.Titles = clean(t.Titles)
	if len(t.Titles) == 0 {
		return TOC{}, ErrEmpty
	}
	return t, nil
}

func parseJSON(data []byte) (TOC, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var titles []string
		if err := json.Unmarshal(trimmed, &titles); err != nil {
			return TOC{}, fmt.Errorf("parse toc json: %w", err)
		}
		return TOC{Titles: titles}, nil
	}

	var t TOC
	if err := json.Unmarshal(trimmed, &t); err != nil {
		return TOC{}, fmt.Errorf("parse toc json: %w", err)
	}
	return t, nil
}

func parseTOML(data []byte) (TOC, error) {
	var t TOC
	if err := toml.Unmarshal(data, &t); err != nil {
		return TOC{}, fmt.Errorf("parse toc toml: %w", err)
	}
	return t, nil
}

// maxLine bounds a single table-of-contents line.
const maxLine = 1024 * 1024

func parseLines(data []byte) (TOC, error) {
	var t TOC
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t.Titles = append(t.Titles, line)
	}
	if err := sc.Err(); err != nil {
		return TOC{}, fmt.Errorf("read toc lines: %w", err)
	}
	return t, nil
}

// clean trims whitespace and drops empty entries. Duplicates are left for
// the classifier's title set to collapse.
func clean(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, title := range titles {
		if title = strings.TrimSpace(title); title != "" {
			out = append(out, title)
		}
	}
	return out
}
