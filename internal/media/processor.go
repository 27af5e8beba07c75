// Package media wraps the ffmpeg operations used around chapter detection:
// cutting classification clips, probing duration, dumping and merging
// chapter metadata, and reading embedded cover art.
package media

import (
	"context"
	"time"
)

// ClipLength is the length of every classification clip.
const ClipLength = 10 * time.Second

// MergeInput describes one container merge.
type MergeInput struct {
	// AudioPath is the source audio file. Its extension selects stream copy
	// or AAC transcoding.
	AudioPath string
	// MetadataPath is an FFMETADATA1 file supplying tags and chapters.
	MetadataPath string
	// CoverPath is an optional image attached as cover art.
	CoverPath string
	// OutputPath is the destination file, normally with an .m4b extension.
	OutputPath string
}

// Processor defines the ffmpeg operations the pipeline depends on.
type Processor interface {
	// ExtractClip writes ClipLength of audio starting at start from src to
	// dst. The output format follows dst's extension.
	ExtractClip(ctx context.Context, src string, start time.Duration, dst string) error

	// Merge writes audio, chapter metadata and optional cover art into a
	// single container.
	Merge(ctx context.Context, in MergeInput) error

	// GetMediaDuration returns the container duration.
	GetMediaDuration(ctx context.Context, path string) (time.Duration, error)

	// DumpMetadata returns the file's tags and chapters as FFMETADATA1 text.
	DumpMetadata(ctx context.Context, path string) (string, error)
}

// Tags are the descriptive fields read from a file's own tag block.
type Tags struct {
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
	Chapters int
	Format   string
}

// TagReader reads tags and embedded artwork without spawning ffmpeg.
type TagReader interface {
	// ReadTags returns the file's descriptive tags.
	ReadTags(ctx context.Context, path string) (Tags, error)

	// ExtractCover returns the first embedded picture, or nil when the file
	// has none.
	ExtractCover(ctx context.Context, path string) ([]byte, error)
}
