package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/maauso/chapterize/internal/chapters"
	"github.com/maauso/chapterize/internal/pipeline"
)

type inspectResult struct {
	chapters.Document
	Format    string `json:"format,omitempty"`
	Duration  string `json:"duration,omitempty"`
	CoverMIME string `json:"cover_mime,omitempty"`
	CoverSize int    `json:"cover_size"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var (
		coverOut string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "inspect <audio>",
		Short: "Show the chapters and cover already embedded in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.dependencies()
			if err != nil {
				return err
			}

			out, err := deps.Pipeline.Inspect(cmd.Context(), pipeline.InspectInput{AudioPath: args[0]})
			if err != nil {
				return err
			}

			if coverOut != "" && len(out.Cover) > 0 {
				if err := os.WriteFile(coverOut, out.Cover, 0o644); err != nil { // #nosec G306 - user-facing output file
					return fmt.Errorf("write cover: %w", err)
				}
			}
			if output != "" {
				if err := writeChaptersFile(output, out.Document); err != nil {
					return err
				}
			}

			if ctx.json {
				res := inspectResult{
					Document:  out.Document,
					Format:    out.Format,
					CoverMIME: out.CoverMIME,
					CoverSize: len(out.Cover),
				}
				if out.Duration > 0 {
					res.Duration = out.Duration.Round(time.Second).String()
				}
				return writeJSON(cmd, res)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, joinNonEmpty(" by ", out.Document.Title, out.Document.Author))
			if out.Duration > 0 || out.Format != "" {
				fmt.Fprintln(w, joinNonEmpty(", ", out.Format, formatClock(out.Duration)))
			}
			fmt.Fprintln(w, renderTable(
				[]string{"#", "Start", "Title"},
				chapterRows(out.Document.Chapters),
				[]columnAlignment{alignRight, alignRight, alignLeft},
			))

			switch {
			case len(out.Cover) == 0:
				printNote(cmd, noteWarn, "No embedded cover")
			case coverOut != "":
				printNote(cmd, noteOK, "Cover (%s, %s) written to %s", out.CoverMIME, humanize.Bytes(uint64(len(out.Cover))), coverOut)
			default:
				printNote(cmd, noteOK, "Cover: %s, %s", out.CoverMIME, humanize.Bytes(uint64(len(out.Cover))))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&coverOut, "cover-out", "", "Write the embedded cover image to this file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the chapter list as JSON to this file")
	return cmd
}
