// Package classifier decides whether a short audio clip announces one of the
// book's known chapter titles.
package classifier

import "context"

// Clip is an encoded audio excerpt handed to a classifier.
type Clip struct {
	Data     []byte
	MIMEType string
}

// Result is a classification answer. Chapter is empty when ContainsChapter
// is false.
type Result struct {
	ContainsChapter bool
	Chapter         string
}

// Classifier inspects one clip against the candidate titles.
type Classifier interface {
	Classify(ctx context.Context, clip Clip, titles []string) (Result, error)
}
