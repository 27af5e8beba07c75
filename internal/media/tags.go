package media

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/simonhull/audiometa"
)

// AudiometaReader implements TagReader with the audiometa parser.
type AudiometaReader struct {
	logger *slog.Logger
}

var _ TagReader = (*AudiometaReader)(nil)

// NewAudiometaReader creates a tag reader. A nil logger uses slog.Default().
func NewAudiometaReader(logger *slog.Logger) *AudiometaReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudiometaReader{logger: logger}
}

// ReadTags opens path and copies out its descriptive tags.
func (r *AudiometaReader) ReadTags(ctx context.Context, path string) (Tags, error) {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return Tags{}, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close() //nolint:errcheck // read-only handle

	return Tags{
		Title:    file.Tags.Title,
		Artist:   file.Tags.Artist,
		Album:    file.Tags.Album,
		Duration: file.Audio.Duration,
		Chapters: len(file.Chapters),
		Format:   file.Format.String(),
	}, nil
}

// ExtractCover returns the first embedded artwork, or nil if there is none.
func (r *AudiometaReader) ExtractCover(ctx context.Context, path string) ([]byte, error) {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close() //nolint:errcheck // read-only handle

	artworks, err := file.ExtractArtwork()
	if err != nil {
		return nil, fmt.Errorf("extract artwork: %w", err)
	}

	if len(artworks) == 0 {
		r.logger.Debug("no embedded cover found",
			slog.String("path", path),
			slog.String("format", file.Format.String()),
		)
		return nil, nil
	}

	r.logger.Debug("extracted cover art",
		slog.String("path", path),
		slog.Int("count", len(artworks)),
		slog.Int("size", len(artworks[0].Data)),
	)
	return artworks[0].Data, nil
}
