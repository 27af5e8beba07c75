package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/chapterize/internal/chapters"
	"github.com/maauso/chapterize/internal/ffmetadata"
	"github.com/maauso/chapterize/internal/media"
)

// InspectInput names the file to inspect.
type InspectInput struct {
	AudioPath string `validate:"required"`
}

// InspectOutput is the chapter metadata already present in a file.
type InspectOutput struct {
	Document chapters.Document
	// Cover is the embedded artwork, nil when absent or unreadable.
	Cover     []byte
	CoverMIME string
	// Duration comes from the file's tags and is zero when they could not be read.
	Duration time.Duration
	Format   string
}

// Inspect decodes a file's existing chapters and reads its cover art. Only
// the metadata dump is required; tag and cover failures are logged.
func (s *Service) Inspect(ctx context.Context, in InspectInput) (*InspectOutput, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	logger := s.logger.With(slog.String("audio", in.AudioPath))

	var (
		doc   chapters.Document
		tags  media.Tags
		cover []byte
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := s.processor.DumpMetadata(gctx, in.AudioPath)
		if err != nil {
			return fmt.Errorf("dump metadata: %w", err)
		}
		doc = ffmetadata.Decode(text)
		return nil
	})
	g.Go(func() error {
		t, err := s.tags.ReadTags(gctx, in.AudioPath)
		if err != nil {
			logger.Warn("failed to read tags", slog.String("error", err.Error()))
			return nil
		}
		tags = t
		return nil
	})
	g.Go(func() error {
		c, err := s.tags.ExtractCover(gctx, in.AudioPath)
		if err != nil {
			logger.Info("error extracting cover", slog.String("error", err.Error()))
			return nil
		}
		cover = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if doc.Title == chapters.DefaultTitle && tags.Title != "" {
		doc.Title = tags.Title
	}
	if doc.Author == chapters.DefaultAuthor && tags.Artist != "" {
		doc.Author = tags.Artist
	}

	out := &InspectOutput{
		Document: doc,
		Cover:    cover,
		Duration: tags.Duration,
		Format:   tags.Format,
	}
	if len(cover) > 0 {
		out.CoverMIME = http.DetectContentType(cover)
	}

	logger.Info("inspected chapters",
		slog.String("title", doc.Title),
		slog.Int("chapters", len(doc.Chapters)),
		slog.Bool("cover", len(cover) > 0),
	)
	return out, nil
}
