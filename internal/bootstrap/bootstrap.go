// Package bootstrap provides dependency initialization for chapterize.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/chapterize/internal/audio"
	"github.com/maauso/chapterize/internal/classifier"
	"github.com/maauso/chapterize/internal/config"
	"github.com/maauso/chapterize/internal/gemini"
	"github.com/maauso/chapterize/internal/media"
	"github.com/maauso/chapterize/internal/pipeline"
	"github.com/maauso/chapterize/internal/run"
	"github.com/maauso/chapterize/internal/storage"
	"github.com/maauso/chapterize/internal/timestamp"
)

// Dependencies holds all initialized dependencies for the CLI.
type Dependencies struct {
	Pipeline *pipeline.Service
	Storage  storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	analyzer := audio.NewFFmpegAnalyzer(cfg.FFmpegPath, cfg.FFprobePath)
	processor := media.NewFFmpegProcessor(cfg.FFmpegPath, cfg.FFprobePath)
	tags := media.NewAudiometaReader(logger)
	repo := run.NewMemoryRepository()

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithDetectionMode(pipeline.DetectionMode(cfg.DetectionMode)),
		pipeline.WithReportOpts(audio.ReportOpts{
			NoiseDB:    cfg.SilenceNoiseDB,
			MinSilence: timestamp.Seconds(cfg.SilenceMinSec),
		}),
		pipeline.WithExtraCandidates(cfg.ExtraCandidates),
		pipeline.WithRateLimit(cfg.ClassifyRatePerMin),
	}

	if cfg.ClassifierEnabled() {
		client, err := gemini.NewClient(
			gemini.WithAPIKey(cfg.GeminiAPIKey),
			gemini.WithModel(cfg.GeminiModel),
			gemini.WithBaseURL(cfg.GeminiBaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("create Gemini client: %w", err)
		}
		opts = append(opts, pipeline.WithClassifier(classifier.NewGeminiClassifier(client)))
		logger.Debug("classifier configured",
			slog.String("model", client.Model()),
			slog.Int("rate_per_min", cfg.ClassifyRatePerMin),
		)
	} else {
		logger.Warn("GEMINI_API_KEY not set, chapters will be named by position")
	}

	svc := pipeline.NewService(analyzer, processor, tags, store, repo, opts...)

	return &Dependencies{
		Pipeline: svc,
		Storage:  store,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Debug("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Debug("local storage configured",
		slog.String("temp_dir", localStore.TempDir()),
	)
	return localStore, nil
}
