// Package pipeline provides the chapter use cases: Generate finds and names
// chapter boundaries, Inspect reads the chapters already in a file, and
// Export writes a chapter-tagged audiobook.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/maauso/chapterize/internal/audio"
	"github.com/maauso/chapterize/internal/classifier"
	"github.com/maauso/chapterize/internal/media"
	"github.com/maauso/chapterize/internal/run"
	"github.com/maauso/chapterize/internal/storage"
)

// DetectionMode selects how silence is found.
type DetectionMode string

const (
	// ModeReport runs ffmpeg's silencedetect filter and parses its report.
	ModeReport DetectionMode = "report"
	// ModeScan decodes the audio to PCM and scans amplitudes directly.
	ModeScan DetectionMode = "scan"
)

// DefaultExtraCandidates is how many boundaries beyond the wanted count are
// classified, since some silences turn out not to be chapter breaks.
const DefaultExtraCandidates = 8

// Static errors for pipeline operations.
var (
	// ErrInvalidInput is returned when a use case input fails validation.
	ErrInvalidInput = errors.New("pipeline: invalid input")
	// ErrTitlesRequired is returned when a classifier is configured but no
	// table of contents was supplied.
	ErrTitlesRequired = errors.New("pipeline: table of contents is required when a classifier is configured")
	// ErrSameOutput is returned when an export would overwrite its source.
	ErrSameOutput = errors.New("pipeline: output path must differ from the audio path")
	// ErrChapterOutOfRange is returned when an exported chapter starts
	// before zero or at or after the end of the audio.
	ErrChapterOutOfRange = errors.New("pipeline: chapter starts outside the audio")
)

// Service orchestrates the chapter workflows. It is safe for concurrent use,
// though concurrent Generate calls sharing a temp dir serialize on the clip
// slot.
type Service struct {
	analyzer   audio.Analyzer
	processor  media.Processor
	tags       media.TagReader
	store      storage.Storage
	repo       run.Repository
	classifier classifier.Classifier
	limiter    *rate.Limiter
	validate   *validator.Validate
	logger     *slog.Logger

	mode       DetectionMode
	reportOpts audio.ReportOpts
	extra      int
}

// Option configures a Service.
type Option func(*Service)

// WithClassifier enables classification. Without one every boundary is
// accepted and named "Chapter n".
func WithClassifier(c classifier.Classifier) Option {
	return func(s *Service) {
		s.classifier = c
	}
}

// WithRateLimit caps classification requests per minute. Zero or less
// disables pacing.
func WithRateLimit(perMinute int) Option {
	return func(s *Service) {
		if perMinute <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
	}
}

// WithDetectionMode selects report or scan detection.
func WithDetectionMode(m DetectionMode) Option {
	return func(s *Service) {
		if m == ModeReport || m == ModeScan {
			s.mode = m
		}
	}
}

// WithReportOpts sets the silencedetect parameters used in report mode.
func WithReportOpts(opts audio.ReportOpts) Option {
	return func(s *Service) {
		s.reportOpts = opts
	}
}

// WithExtraCandidates sets the default slack added to the wanted count.
func WithExtraCandidates(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.extra = n
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service. Report detection, default silencedetect
// settings and DefaultExtraCandidates apply unless overridden.
func NewService(
	analyzer audio.Analyzer,
	processor media.Processor,
	tags media.TagReader,
	store storage.Storage,
	repo run.Repository,
	opts ...Option,
) *Service {
	s := &Service{
		analyzer:   analyzer,
		processor:  processor,
		tags:       tags,
		store:      store,
		repo:       repo,
		validate:   validator.New(),
		logger:     slog.Default(),
		mode:       ModeReport,
		reportOpts: audio.DefaultReportOpts(),
		extra:      DefaultExtraCandidates,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClassifierEnabled reports whether boundaries are classified or named by
// position.
func (s *Service) ClassifierEnabled() bool {
	return s.classifier != nil
}

// GetRun retrieves a run by ID.
func (s *Service) GetRun(ctx context.Context, id string) (*run.Run, error) {
	return s.repo.FindByID(ctx, id)
}

// ListRuns returns all runs recorded by this process.
func (s *Service) ListRuns(ctx context.Context) ([]*run.Run, error) {
	return s.repo.List(ctx)
}

func (s *Service) saveRun(ctx context.Context, r *run.Run) {
	// Bookkeeping only: a save failure is logged, never returned.
	if err := s.repo.Save(context.WithoutCancel(ctx), r); err != nil {
		s.logger.Warn("failed to save run",
			slog.String("run_id", r.ID),
			slog.String("error", err.Error()),
		)
	}
}
