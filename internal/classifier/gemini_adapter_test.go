package classifier

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/chapterize/internal/gemini"
)

type mockGeminiClient struct {
	mock.Mock
}

func (m *mockGeminiClient) MatchChapter(ctx context.Context, req gemini.MatchRequest) (gemini.Match, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gemini.Match), args.Error(1)
}

func TestGeminiClassifier_Classify(t *testing.T) {
	ctx := context.Background()
	mockClient := &mockGeminiClient{}
	adapter := NewGeminiClassifier(mockClient)

	clip := Clip{Data: []byte("mp3"), MIMEType: "audio/mp3"}
	titles := []string{"Prologue", "Chapter One"}

	mockClient.On("MatchChapter", ctx, gemini.MatchRequest{
		Audio:    clip.Data,
		MIMEType: "audio/mp3",
		Titles:   titles,
	}).Return(gemini.Match{ContainsChapter: true, Chapter: "Prologue"}, nil)

	res, err := adapter.Classify(ctx, clip, titles)
	require.NoError(t, err)
	assert.Equal(t, Result{ContainsChapter: true, Chapter: "Prologue"}, res)
	mockClient.AssertExpectations(t)
}

func TestGeminiClassifier_NegativeDropsTitle(t *testing.T) {
	mockClient := &mockGeminiClient{}
	mockClient.On("MatchChapter", mock.Anything, mock.Anything).
		Return(gemini.Match{ContainsChapter: false, Chapter: "Prologue"}, nil)

	res, err := NewGeminiClassifier(mockClient).Classify(context.Background(), Clip{Data: []byte{1}}, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestGeminiClassifier_MalformedIsNegative(t *testing.T) {
	mockClient := &mockGeminiClient{}
	mockClient.On("MatchChapter", mock.Anything, mock.Anything).
		Return(gemini.Match{}, fmt.Errorf("%w: unexpected token", gemini.ErrMalformedResponse))

	res, err := NewGeminiClassifier(mockClient).Classify(context.Background(), Clip{Data: []byte{1}}, nil)
	require.NoError(t, err)
	assert.False(t, res.ContainsChapter)
}

func TestGeminiClassifier_TransportError(t *testing.T) {
	mockClient := &mockGeminiClient{}
	mockClient.On("MatchChapter", mock.Anything, mock.Anything).
		Return(gemini.Match{}, errors.New("connection refused"))

	_, err := NewGeminiClassifier(mockClient).Classify(context.Background(), Clip{Data: []byte{1}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini classifier")
}
