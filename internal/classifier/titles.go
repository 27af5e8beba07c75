package classifier

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// KnownTitles is the table-of-contents title set used to validate answers.
// Lookups compare NFC-normalized, whitespace-trimmed text.
type KnownTitles struct {
	ordered []string
	index   map[string]string
}

// NewKnownTitles builds the set, dropping blanks and duplicates while
// keeping first-seen order.
func NewKnownTitles(titles []string) KnownTitles {
	k := KnownTitles{
		ordered: make([]string, 0, len(titles)),
		index:   make(map[string]string, len(titles)),
	}
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := normalize(t)
		if _, dup := k.index[key]; dup {
			continue
		}
		k.index[key] = t
		k.ordered = append(k.ordered, t)
	}
	return k
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Lookup returns the table's own spelling of title.
func (k KnownTitles) Lookup(title string) (string, bool) {
	canonical, ok := k.index[normalize(title)]
	return canonical, ok
}

// Contains reports whether title is in the set.
func (k KnownTitles) Contains(title string) bool {
	_, ok := k.Lookup(title)
	return ok
}

// List returns the titles in table order.
func (k KnownTitles) List() []string {
	out := make([]string, len(k.ordered))
	copy(out, k.ordered)
	return out
}

// Len returns the number of distinct titles.
func (k KnownTitles) Len() int {
	return len(k.ordered)
}

// Validate applies the known-title rule to a raw answer. A positive answer
// naming a title outside the set is downgraded to a negative one and the
// second return value reports that downgrade. Negative answers never carry a
// title.
func Validate(r Result, known KnownTitles) (Result, bool) {
	if !r.ContainsChapter {
		return Result{}, false
	}
	canonical, ok := known.Lookup(r.Chapter)
	if !ok {
		return Result{}, true
	}
	return Result{ContainsChapter: true, Chapter: canonical}, false
}
