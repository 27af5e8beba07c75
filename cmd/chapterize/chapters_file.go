package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/maauso/chapterize/internal/chapters"
)

// readChaptersFile accepts either a document object as written by
// `generate --output` or a bare array of chapters.
func readChaptersFile(path string) (chapters.Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the command line
	if err != nil {
		return chapters.Document{}, fmt.Errorf("read chapters: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []chapters.Chapter
		if err := json.Unmarshal(data, &list); err != nil {
			return chapters.Document{}, fmt.Errorf("parse chapters: %w", err)
		}
		return chapters.Document{Chapters: list}, nil
	}

	var doc chapters.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return chapters.Document{}, fmt.Errorf("parse chapters: %w", err)
	}
	return doc, nil
}

func writeChaptersFile(path string, doc chapters.Document) error {
	if doc.Chapters == nil {
		doc.Chapters = []chapters.Chapter{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chapters: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { // #nosec G306 - user-facing output file
		return fmt.Errorf("write chapters: %w", err)
	}
	return nil
}

func chapterRows(list []chapters.Chapter) [][]string {
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{c.ID, formatClock(c.Time), c.Title})
	}
	return rows
}
