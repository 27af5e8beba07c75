package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/maauso/chapterize/internal/pipeline"
)

type exportResult struct {
	Output   string `json:"output"`
	URL      string `json:"url,omitempty"`
	Chapters int    `json:"chapters"`
	Duration string `json:"duration"`
	Size     int64  `json:"size"`
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		chaptersPath string
		title        string
		author       string
		coverPath    string
		output       string
		upload       bool
		s3Key        string
	)

	cmd := &cobra.Command{
		Use:   "export <audio>",
		Short: "Write an .m4b with the given chapters, tags and cover",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.dependencies()
			if err != nil {
				return err
			}

			doc, err := readChaptersFile(chaptersPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("book-title") {
				doc.Title = title
			}
			if cmd.Flags().Changed("author") {
				doc.Author = author
			}

			out, err := deps.Pipeline.Export(cmd.Context(), pipeline.ExportInput{
				AudioPath:  args[0],
				OutputPath: output,
				Title:      doc.Title,
				Author:     doc.Author,
				Chapters:   doc.Chapters,
				CoverPath:  coverPath,
				Upload:     upload,
				S3Key:      s3Key,
			})
			if err != nil {
				return err
			}

			var size int64
			if info, err := os.Stat(out.OutputPath); err == nil {
				size = info.Size()
			}

			if ctx.json {
				return writeJSON(cmd, exportResult{
					Output:   out.OutputPath,
					URL:      out.URL,
					Chapters: out.Chapters,
					Duration: formatClock(out.Duration),
					Size:     size,
				})
			}

			printNote(cmd, noteOK, "Wrote %s (%s, %d chapters, %s)",
				out.OutputPath, humanize.Bytes(uint64(size)), out.Chapters, formatClock(out.Duration))
			if out.URL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded to %s\n", out.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&chaptersPath, "chapters", "c", "", "Chapter list JSON (from generate --output or inspect --output)")
	cmd.Flags().StringVar(&title, "book-title", "", "Book title (overrides the chapter file)")
	cmd.Flags().StringVar(&author, "author", "", "Book author (overrides the chapter file)")
	cmd.Flags().StringVar(&coverPath, "cover", "", "Cover image to embed")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to <audio>.m4b)")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload the result to S3 (requires S3_BUCKET and S3_REGION)")
	cmd.Flags().StringVar(&s3Key, "s3-key", "", "S3 object key (defaults to the output file name)")
	_ = cmd.MarkFlagRequired("chapters")
	return cmd
}
