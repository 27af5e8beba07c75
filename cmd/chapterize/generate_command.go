package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/chapterize/internal/chapters"
	"github.com/maauso/chapterize/internal/pipeline"
	"github.com/maauso/chapterize/internal/run"
	"github.com/maauso/chapterize/internal/toc"
)

type generateResult struct {
	RunID      string             `json:"run_id"`
	Status     string             `json:"status"`
	Progress   int                `json:"progress"`
	Title      string             `json:"title,omitempty"`
	Author     string             `json:"author,omitempty"`
	Chapters   []chapters.Chapter `json:"chapters"`
	Silences   int                `json:"silences"`
	Candidates int                `json:"candidates"`
	Failed     int                `json:"failed"`
	Downgraded int                `json:"downgraded"`
	Classified bool               `json:"classified"`
	Elapsed    string             `json:"elapsed"`
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		tocPath string
		titles  []string
		count   int
		skip    int
		extra   int
		output  string
	)

	cmd := &cobra.Command{
		Use:   "generate <audio>",
		Short: "Detect chapter boundaries and name them from the table of contents",
		Long: `Generate finds the longest silences in an audiobook, picks the most
likely chapter breaks and, when GEMINI_API_KEY is set, asks the classifier
which table-of-contents entry is announced after each one. Without a key the
breaks are named "Chapter 1", "Chapter 2", ...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.dependencies()
			if err != nil {
				return err
			}

			var contents toc.TOC
			if tocPath != "" {
				contents, err = toc.Load(tocPath)
				if err != nil {
					return err
				}
			}
			contents.Titles = append(contents.Titles, titles...)

			if count <= 0 {
				count = len(contents.Titles)
			}

			in := pipeline.GenerateInput{
				AudioPath: args[0],
				Titles:    contents.Titles,
				Wanted:    count,
				Skip:      skip,
			}
			if cmd.Flags().Changed("extra") {
				in.Extra = &extra
			}

			out, err := deps.Pipeline.Generate(cmd.Context(), in)
			if err != nil {
				logUnfinishedRuns(context.WithoutCancel(cmd.Context()), ctx.logger, deps.Pipeline)
				return err
			}
			rec, err := deps.Pipeline.GetRun(cmd.Context(), out.RunID)
			if err != nil {
				return err
			}

			if output != "" {
				doc := chapters.Document{Title: contents.Title, Author: contents.Author, Chapters: out.Chapters}
				if err := writeChaptersFile(output, doc); err != nil {
					return err
				}
			}

			if ctx.json {
				return writeJSON(cmd, generateResult{
					RunID:      out.RunID,
					Status:     string(rec.GetStatus()),
					Progress:   rec.Progress,
					Title:      contents.Title,
					Author:     contents.Author,
					Chapters:   out.Chapters,
					Silences:   out.Silences,
					Candidates: out.Candidates,
					Failed:     out.Failed,
					Downgraded: out.Downgraded,
					Classified: out.Classified,
					Elapsed:    out.Elapsed.Round(time.Millisecond).String(),
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, renderTable(
				[]string{"#", "Start", "Title"},
				chapterRows(out.Chapters),
				[]columnAlignment{alignRight, alignRight, alignLeft},
			))
			printNote(cmd, noteOK, "Run %s %s: %d chapters from %d candidates (%d silences) in %s",
				rec.ID, rec.GetStatus(), len(out.Chapters), out.Candidates, out.Silences, out.Elapsed.Round(time.Millisecond))
			if out.Failed > 0 || out.Downgraded > 0 {
				printNote(cmd, noteWarn, "%d boundaries skipped after errors, %d answers outside the table of contents",
					out.Failed, out.Downgraded)
			}
			if output != "" {
				fmt.Fprintf(w, "Wrote %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tocPath, "toc", "t", "", "Table of contents file (.json, .toml or one title per line)")
	cmd.Flags().StringArrayVar(&titles, "title", nil, "Table of contents entry (repeatable)")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of chapters wanted (defaults to the number of titles)")
	cmd.Flags().IntVar(&skip, "skip", 0, "Skip this many of the longest silences (already used)")
	cmd.Flags().IntVar(&extra, "extra", pipeline.DefaultExtraCandidates, "Extra candidates to classify beyond --count")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the chapter list as JSON to this file")
	return cmd
}

type runLister interface {
	ListRuns(ctx context.Context) ([]*run.Run, error)
}

// logUnfinishedRuns reports where failed or abandoned runs stopped.
func logUnfinishedRuns(ctx context.Context, logger *slog.Logger, runs runLister) {
	list, err := runs.ListRuns(ctx)
	if err != nil {
		logger.Warn("failed to list runs", slog.String("error", err.Error()))
		return
	}
	for _, r := range list {
		if r.IsTerminal() && r.GetStatus() != run.StatusFailed {
			continue
		}
		logger.Error("run did not complete",
			slog.String("run_id", r.ID),
			slog.String("status", string(r.GetStatus())),
			slog.Int("processed", r.Processed),
			slog.Int("candidates", r.Candidates),
			slog.Int("progress", r.Progress),
			slog.String("error", r.Error),
		)
	}
}

// formatClock renders a start time as H:MM:SS.mmm.
func formatClock(d time.Duration) string {
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, d/time.Millisecond)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
