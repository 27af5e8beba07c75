package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/maauso/chapterize/internal/boundary"
	"github.com/maauso/chapterize/internal/chapters"
	"github.com/maauso/chapterize/internal/classifier"
	"github.com/maauso/chapterize/internal/run"
	"github.com/maauso/chapterize/internal/silence"
	"github.com/maauso/chapterize/internal/timestamp"
)

const (
	clipExt  = ".mp3"
	clipMIME = "audio/mp3"
)

// GenerateInput contains the parameters for one chapter generation run.
type GenerateInput struct {
	// AudioPath is the audiobook to analyze.
	AudioPath string `validate:"required"`
	// Titles is the table of contents. Required when a classifier is configured.
	Titles []string
	// Wanted is the number of chapters expected.
	Wanted int `validate:"gte=1"`
	// Skip is the number of longest silences already consumed by earlier runs.
	Skip int `validate:"gte=0"`
	// Extra overrides the service's extra candidate count when non-nil.
	Extra *int `validate:"omitempty,gte=0"`
}

// GenerateOutput is the result of a completed run.
type GenerateOutput struct {
	RunID string
	// Chapters are ordered by time with IDs 1..n.
	Chapters []chapters.Chapter
	// Silences is the number of silence intervals detected.
	Silences int
	// Candidates is the number of boundaries that were considered.
	Candidates int
	// Failed counts boundaries skipped after an extraction or service error.
	Failed int
	// Downgraded counts answers rejected for naming an unknown title.
	Downgraded int
	// Classified is false when boundaries were named by position.
	Classified bool
	Elapsed    time.Duration
}

// Generate detects silences, selects the most likely boundaries and names
// them. A failing boundary is logged and skipped; detection failures and
// cancellation fail the run.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var known classifier.KnownTitles
	if s.classifier != nil {
		known = classifier.NewKnownTitles(in.Titles)
		if known.Len() == 0 {
			return nil, ErrTitlesRequired
		}
	}

	extra := s.extra
	if in.Extra != nil {
		extra = *in.Extra
	}

	r := run.New(in.AudioPath, in.Wanted)
	s.saveRun(ctx, r)

	logger := s.logger.With(slog.String("run_id", r.ID))
	logger.Info("starting chapter generation",
		slog.String("audio", in.AudioPath),
		slog.Int("wanted", in.Wanted),
		slog.Int("extra", extra),
		slog.Int("skip", in.Skip),
		slog.String("mode", string(s.mode)),
		slog.Bool("classifier", s.classifier != nil),
	)

	out, err := s.generate(ctx, logger, r, in, known, extra)
	if err != nil {
		if failErr := r.Fail(err.Error()); failErr != nil {
			logger.Warn("failed to mark run as failed", slog.String("error", failErr.Error()))
		}
		s.saveRun(ctx, r)
		logger.Error("chapter generation failed", slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("chapter generation completed",
		slog.Int("chapters", len(out.Chapters)),
		slog.Int("candidates", out.Candidates),
		slog.Int("failed", out.Failed),
		slog.Int("downgraded", out.Downgraded),
		slog.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

func (s *Service) generate(
	ctx context.Context,
	logger *slog.Logger,
	r *run.Run,
	in GenerateInput,
	known classifier.KnownTitles,
	extra int,
) (*GenerateOutput, error) {
	if err := r.StartDetecting(); err != nil {
		return nil, err
	}
	s.saveRun(ctx, r)

	intervals, err := s.detect(ctx, logger, in.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("detect silences: %w", err)
	}
	logger.Info("silences detected", slog.Int("count", len(intervals)))

	boundaries := boundary.Select(intervals, in.Wanted+extra, in.Skip)
	logger.Info("boundaries selected", slog.Int("count", len(boundaries)))

	var list []chapters.Chapter
	if s.classifier == nil {
		logger.Info("no classifier configured, using default chapter titles")
		list = nameByPosition(boundaries)
	} else {
		if err := r.StartClassifying(len(boundaries)); err != nil {
			return nil, err
		}
		s.saveRun(ctx, r)

		list, err = s.classifyBoundaries(ctx, logger, r, in.AudioPath, boundaries, known)
		if err != nil {
			return nil, err
		}
	}

	if err := r.Complete(list); err != nil {
		return nil, err
	}
	s.saveRun(ctx, r)

	snap := r.Clone()
	return &GenerateOutput{
		RunID:      snap.ID,
		Chapters:   snap.Chapters,
		Silences:   len(intervals),
		Candidates: len(boundaries),
		Failed:     snap.Failed,
		Downgraded: snap.Downgraded,
		Classified: s.classifier != nil,
		Elapsed:    snap.Elapsed(),
	}, nil
}

func (s *Service) detect(ctx context.Context, logger *slog.Logger, path string) ([]silence.Interval, error) {
	if s.mode == ModeReport {
		return s.analyzer.SilenceReport(ctx, path, s.reportOpts)
	}

	sampleRate, err := s.analyzer.SampleRate(ctx, path)
	if err != nil || sampleRate <= 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("sample rate probe failed, using fallback",
			slog.Int("fallback", silence.FallbackSampleRate),
			slog.Any("error", err),
		)
		sampleRate = silence.FallbackSampleRate
	}

	raw, err := s.analyzer.DecodePCM(ctx, path, sampleRate)
	if err != nil {
		return nil, err
	}
	logger.Debug("decoded audio",
		slog.Int("sample_rate", sampleRate),
		slog.Int("bytes", len(raw)),
	)
	return silence.Detect(raw, sampleRate, silence.DefaultScanOptions(sampleRate)), nil
}

func nameByPosition(boundaries []time.Duration) []chapters.Chapter {
	list := make([]chapters.Chapter, 0, len(boundaries))
	for i, at := range boundaries {
		list = append(list, chapters.Chapter{Time: at, Title: chapters.DefaultName(i + 1)})
	}
	return chapters.Renumber(list)
}

// classifyBoundaries runs extract then classify for each boundary in order.
// All boundaries share one clip file.
func (s *Service) classifyBoundaries(
	ctx context.Context,
	logger *slog.Logger,
	r *run.Run,
	audioPath string,
	boundaries []time.Duration,
	known classifier.KnownTitles,
) ([]chapters.Chapter, error) {
	if len(boundaries) == 0 {
		return nil, nil
	}

	slot, err := s.store.AcquireClip(ctx, clipExt)
	if err != nil {
		return nil, fmt.Errorf("acquire clip slot: %w", err)
	}
	defer func() {
		if err := slot.Release(); err != nil {
			logger.Warn("failed to release clip slot", slog.String("error", err.Error()))
		}
	}()

	titles := known.List()
	list := make([]chapters.Chapter, 0, len(boundaries))

	for i, at := range boundaries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}

		blog := logger.With(
			slog.Int("boundary", i+1),
			slog.String("at", timestamp.Format(at)),
		)

		res, err := s.classifyAt(ctx, audioPath, at, slot.Path, titles)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			blog.Warn("skipping boundary", slog.String("error", err.Error()))
			r.RecordBoundary(true, false)
			s.saveRun(ctx, r)
			continue
		}

		res, downgraded := classifier.Validate(res, known)
		if downgraded {
			blog.Warn("classifier returned a title outside the table of contents")
		}
		if res.ContainsChapter {
			blog.Info("chapter found", slog.String("title", res.Chapter))
			list = append(list, chapters.Chapter{Time: at, Title: res.Chapter})
		} else {
			blog.Debug("no chapter at boundary")
		}

		r.RecordBoundary(false, downgraded)
		s.saveRun(ctx, r)
	}

	return chapters.Renumber(list), nil
}

func (s *Service) classifyAt(ctx context.Context, audioPath string, at time.Duration, clipPath string, titles []string) (classifier.Result, error) {
	if err := s.processor.ExtractClip(ctx, audioPath, at, clipPath); err != nil {
		return classifier.Result{}, fmt.Errorf("extract clip: %w", err)
	}

	rc, err := s.store.LoadTemp(ctx, clipPath)
	if err != nil {
		return classifier.Result{}, fmt.Errorf("load clip: %w", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return classifier.Result{}, fmt.Errorf("read clip: %w", err)
	}
	if len(data) == 0 {
		return classifier.Result{}, errors.New("extract clip: empty clip")
	}

	return s.classifier.Classify(ctx, classifier.Clip{Data: data, MIMEType: clipMIME}, titles)
}
