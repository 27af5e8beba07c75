package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/maauso/chapterize/internal/config"
)

type configResult struct {
	*config.Config
	ClassifierEnabled bool `json:"classifier_enabled"`
	S3Enabled         bool `json:"s3_enabled"`
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration (secrets masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if ctx.json {
				return writeJSON(cmd, configResult{
					Config:            cfg,
					ClassifierEnabled: cfg.ClassifierEnabled(),
					S3Enabled:         cfg.S3Enabled(),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Setting", "Value"},
				configRows(cfg),
				[]columnAlignment{alignLeft, alignLeft},
			))
			if cfg.ClassifierEnabled() {
				printNote(cmd, noteOK, "Classifier enabled (%s)", cfg.GeminiModel)
			} else {
				printNote(cmd, noteWarn, "GEMINI_API_KEY not set: chapters will be named by position")
			}
			return nil
		},
	}
}

func configRows(cfg *config.Config) [][]string {
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = "(system default)"
	}
	return [][]string{
		{"GEMINI_API_KEY", secretState(cfg.GeminiAPIKey)},
		{"GEMINI_MODEL", cfg.GeminiModel},
		{"GEMINI_BASE_URL", cfg.GeminiBaseURL},
		{"CLASSIFY_RATE_PER_MIN", strconv.Itoa(cfg.ClassifyRatePerMin)},
		{"DETECTION_MODE", cfg.DetectionMode},
		{"SILENCE_NOISE_DB", strconv.FormatFloat(cfg.SilenceNoiseDB, 'g', -1, 64)},
		{"SILENCE_MIN_SEC", strconv.FormatFloat(cfg.SilenceMinSec, 'g', -1, 64)},
		{"EXTRA_CANDIDATES", strconv.Itoa(cfg.ExtraCandidates)},
		{"TEMP_DIR", tempDir},
		{"FFMPEG_PATH", cfg.FFmpegPath},
		{"FFPROBE_PATH", cfg.FFprobePath},
		{"S3 upload", yesNo(cfg.S3Enabled())},
		{"LOG_FORMAT", cfg.LogFormat},
		{"LOG_LEVEL", cfg.LogLevel},
	}
}

func secretState(v string) string {
	if v == "" {
		return "not set"
	}
	return "set"
}
