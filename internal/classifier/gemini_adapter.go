package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/maauso/chapterize/internal/gemini"
)

// GeminiClassifier adapts the Gemini client to the Classifier interface.
type GeminiClassifier struct {
	client gemini.Client
}

var _ Classifier = (*GeminiClassifier)(nil)

// NewGeminiClassifier creates a new Gemini classifier adapter.
func NewGeminiClassifier(client gemini.Client) *GeminiClassifier {
	return &GeminiClassifier{client: client}
}

// Classify sends the clip to Gemini. An answer that cannot be decoded counts
// as "no chapter" rather than an error.
func (a *GeminiClassifier) Classify(ctx context.Context, clip Clip, titles []string) (Result, error) {
	m, err := a.client.MatchChapter(ctx, gemini.MatchRequest{
		Audio:    clip.Data,
		MIMEType: clip.MIMEType,
		Titles:   titles,
	})
	if err != nil {
		if errors.Is(err, gemini.ErrMalformedResponse) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("gemini classifier: %w", err)
	}
	if !m.ContainsChapter {
		return Result{}, nil
	}
	return Result{ContainsChapter: true, Chapter: m.Chapter}, nil
}
