package pipeline

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/maauso/chapterize/internal/chapters"
	"github.com/maauso/chapterize/internal/ffmetadata"
	"github.com/maauso/chapterize/internal/media"
	"github.com/maauso/chapterize/internal/timestamp"
)

// ExportInput describes an audiobook to write with chapters.
type ExportInput struct {
	// AudioPath is the source audio.
	AudioPath string `validate:"required"`
	// OutputPath defaults to AudioPath with an .m4b extension.
	OutputPath string
	Title      string
	Author     string
	Chapters   []chapters.Chapter
	// Cover is optional artwork. CoverPath is used when Cover is empty.
	Cover     []byte
	CoverPath string
	// Upload sends the result to S3 under S3Key, or the output file name.
	Upload bool
	S3Key  string
}

// ExportOutput is the result of an export.
type ExportOutput struct {
	OutputPath string
	URL        string
	Duration   time.Duration
	Chapters   int
}

// Export encodes the chapter list as FFMETADATA1 and merges it with the
// audio and optional cover into an M4B container. Merge failures are fatal.
func (s *Service) Export(ctx context.Context, in ExportInput) (*ExportOutput, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	output := in.OutputPath
	if output == "" {
		output = DefaultOutputPath(in.AudioPath)
	}
	if filepath.Clean(output) == filepath.Clean(in.AudioPath) {
		return nil, ErrSameOutput
	}

	logger := s.logger.With(
		slog.String("audio", in.AudioPath),
		slog.String("output", output),
	)
	logger.Info("exporting chapters", slog.Int("chapters", len(in.Chapters)))

	total, err := s.processor.GetMediaDuration(ctx, in.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("get audio duration: %w", err)
	}

	list, err := timeline(in.Chapters, total)
	if err != nil {
		return nil, err
	}

	doc := chapters.Document{
		Title:    orDefault(in.Title, chapters.DefaultTitle),
		Author:   orDefault(in.Author, chapters.DefaultAuthor),
		Chapters: list,
	}

	var temps []string
	defer func() {
		if err := s.store.CleanupTemp(context.WithoutCancel(ctx), temps); err != nil {
			logger.Warn("failed to cleanup temp files", slog.String("error", err.Error()))
		}
	}()

	metaPath, err := s.store.SaveTemp(ctx, "metadata.txt", strings.NewReader(ffmetadata.EncodeString(doc, total)))
	if err != nil {
		return nil, fmt.Errorf("save metadata: %w", err)
	}
	temps = append(temps, metaPath)
	logger.Debug("constructed metadata", slog.String("path", metaPath))

	coverPath := in.CoverPath
	if len(in.Cover) > 0 {
		coverPath, err = s.store.SaveTemp(ctx, "cover", bytes.NewReader(in.Cover))
		if err != nil {
			return nil, fmt.Errorf("save cover: %w", err)
		}
		temps = append(temps, coverPath)
	}

	if err := s.processor.Merge(ctx, media.MergeInput{
		AudioPath:    in.AudioPath,
		MetadataPath: metaPath,
		CoverPath:    coverPath,
		OutputPath:   output,
	}); err != nil {
		return nil, fmt.Errorf("merge metadata: %w", err)
	}

	out := &ExportOutput{
		OutputPath: output,
		Duration:   total,
		Chapters:   len(list),
	}

	if in.Upload {
		url, err := s.upload(ctx, output, in.S3Key)
		if err != nil {
			return nil, err
		}
		out.URL = url
		logger.Info("uploaded audiobook", slog.String("url", url))
	}

	logger.Info("exported chapters", slog.Duration("duration", total))
	return out, nil
}

func (s *Service) upload(ctx context.Context, path, key string) (string, error) {
	if key == "" {
		key = filepath.Base(path)
	}
	f, err := os.Open(path) // #nosec G304 - path is the file this export just wrote
	if err != nil {
		return "", fmt.Errorf("open output: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	url, err := s.store.UploadToS3(ctx, key, f)
	if err != nil {
		return "", fmt.Errorf("upload output: %w", err)
	}
	return url, nil
}

// DefaultOutputPath swaps the extension for .m4b. A source that is already
// .m4b gets a ".chapters.m4b" suffix instead.
func DefaultOutputPath(audioPath string) string {
	ext := filepath.Ext(audioPath)
	base := strings.TrimSuffix(audioPath, ext)
	if strings.EqualFold(ext, ".m4b") {
		return base + ".chapters.m4b"
	}
	return base + ".m4b"
}

// timeline orders chapters by start time and renumbers them so the encoded
// block tiles [0, total) without overlaps.
func timeline(list []chapters.Chapter, total time.Duration) ([]chapters.Chapter, error) {
	sorted := slices.Clone(list)
	slices.SortStableFunc(sorted, func(a, b chapters.Chapter) int {
		return cmp.Compare(a.Time, b.Time)
	})
	for _, c := range sorted {
		if c.Time < 0 || c.Time >= total {
			return nil, fmt.Errorf("%w: %q at %s, audio is %s",
				ErrChapterOutOfRange, c.Title, timestamp.Format(c.Time), timestamp.Format(total))
		}
	}
	return chapters.Renumber(sorted), nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
