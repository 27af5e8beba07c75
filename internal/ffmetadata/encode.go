package ffmetadata

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/maauso/chapterize/internal/chapters"
	"github.com/maauso/chapterize/internal/timestamp"
)

var valueEscaper = strings.NewReplacer(
	`\`, `\\`,
	`=`, `\=`,
	`;`, `\;`,
	`#`, `\#`,
	"\n", "\\\n",
)

// Encode writes doc as a metadata block. Chapters are written in slice order
// with a 1/1000 time base; the first chapter starts at 0, every other chapter
// starts where its predecessor ends and the last one ends at total.
func Encode(w io.Writer, doc chapters.Document, total time.Duration) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\ntitle=%s\nartist=%s\n\n", Header, valueEscaper.Replace(doc.Title), valueEscaper.Replace(doc.Author))

	var start int64
	for i, c := range doc.Chapters {
		end := timestamp.Milliseconds(total)
		if i+1 < len(doc.Chapters) {
			end = timestamp.Milliseconds(doc.Chapters[i+1].Time)
		}
		fmt.Fprintf(bw, "%s\nTIMEBASE=1/1000\nSTART=%d\nEND=%d\ntitle=%s\n\n", chapterMarker, start, end, valueEscaper.Replace(c.Title))
		start = end
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("ffmetadata: write: %w", err)
	}
	return nil
}

// EncodeString is Encode into a string.
func EncodeString(doc chapters.Document, total time.Duration) string {
	var b strings.Builder
	_ = Encode(&b, doc, total)
	return b.String()
}
