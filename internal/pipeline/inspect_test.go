package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/chapterize/internal/chapters"
	"github.com/maauso/chapterize/internal/media"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

const dumpWithHeader = `;FFMETADATA1
title=Dune
artist=Frank Herbert
encoder=Lavf60.16.100

[CHAPTER]
TIMEBASE=1/1000
START=0
END=60000
title=Book One

[CHAPTER]
TIMEBASE=1/1000
START=60000
END=120000
title=Book Two
`

const dumpWithoutHeader = `;FFMETADATA1
encoder=Lavf60.16.100
[CHAPTER]
TIMEBASE=1/44100
START=441000
END=882000
title=Opening
`

func TestInspect(t *testing.T) {
	f := newFixture(t)
	f.processor.On("DumpMetadata", mock.Anything, "book.m4b").Return(dumpWithHeader, nil)
	f.tags.On("ReadTags", mock.Anything, "book.m4b").Return(media.Tags{
		Title:    "Tag Title",
		Artist:   "Tag Artist",
		Duration: 2 * time.Minute,
		Format:   "M4B",
	}, nil)
	f.tags.On("ExtractCover", mock.Anything, "book.m4b").Return(jpegHeader, nil)

	out, err := f.service().Inspect(context.Background(), InspectInput{AudioPath: "book.m4b"})
	require.NoError(t, err)

	assert.Equal(t, "Dune", out.Document.Title)
	assert.Equal(t, "Frank Herbert", out.Document.Author)
	assert.Equal(t, []chapters.Chapter{
		{ID: "1", Time: 0, Title: "Book One"},
		{ID: "2", Time: time.Minute, Title: "Book Two"},
	}, out.Document.Chapters)
	assert.Equal(t, jpegHeader, out.Cover)
	assert.Equal(t, "image/jpeg", out.CoverMIME)
	assert.Equal(t, 2*time.Minute, out.Duration)
	assert.Equal(t, "M4B", out.Format)
}

func TestInspect_FallsBackToTags(t *testing.T) {
	f := newFixture(t)
	f.processor.On("DumpMetadata", mock.Anything, "book.m4b").Return(dumpWithoutHeader, nil)
	f.tags.On("ReadTags", mock.Anything, "book.m4b").Return(media.Tags{Title: "Tag Title", Artist: "Tag Artist"}, nil)
	f.tags.On("ExtractCover", mock.Anything, "book.m4b").Return(nil, nil)

	out, err := f.service().Inspect(context.Background(), InspectInput{AudioPath: "book.m4b"})
	require.NoError(t, err)

	assert.Equal(t, "Tag Title", out.Document.Title)
	assert.Equal(t, "Tag Artist", out.Document.Author)
	require.Len(t, out.Document.Chapters, 1)
	assert.Equal(t, 10*time.Second, out.Document.Chapters[0].Time)
	assert.Nil(t, out.Cover)
	assert.Empty(t, out.CoverMIME)
}

func TestInspect_TagAndCoverFailuresAreTolerated(t *testing.T) {
	f := newFixture(t)
	f.processor.On("DumpMetadata", mock.Anything, "book.mp3").Return(dumpWithoutHeader, nil)
	f.tags.On("ReadTags", mock.Anything, "book.mp3").Return(media.Tags{}, errors.New("unsupported format"))
	f.tags.On("ExtractCover", mock.Anything, "book.mp3").Return(nil, errors.New("unsupported format"))

	out, err := f.service().Inspect(context.Background(), InspectInput{AudioPath: "book.mp3"})
	require.NoError(t, err)

	assert.Equal(t, chapters.DefaultTitle, out.Document.Title)
	assert.Equal(t, chapters.DefaultAuthor, out.Document.Author)
	assert.Nil(t, out.Cover)
}

func TestInspect_DumpFailure(t *testing.T) {
	f := newFixture(t)
	f.processor.On("DumpMetadata", mock.Anything, "book.mp3").Return("", errors.New("no such file"))
	f.tags.On("ReadTags", mock.Anything, "book.mp3").Return(media.Tags{}, nil).Maybe()
	f.tags.On("ExtractCover", mock.Anything, "book.mp3").Return(nil, nil).Maybe()

	_, err := f.service().Inspect(context.Background(), InspectInput{AudioPath: "book.mp3"})
	require.ErrorContains(t, err, "dump metadata")
}

func TestInspect_InputValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.service().Inspect(context.Background(), InspectInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
