package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Static errors for the local workspace.
var (
	// ErrS3NotConfigured is returned by UploadToS3 when no bucket is configured.
	ErrS3NotConfigured = errors.New("S3 storage is not configured")
	// ErrOutsideWorkspace is returned when a path does not live in the workspace.
	ErrOutsideWorkspace = errors.New("path is outside the workspace")
)

// LocalStorage keeps scratch files (metadata blocks, cover art, clips) in a
// single workspace directory.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates the workspace directory if needed. An empty dir
// selects $TMPDIR/chapterize.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "chapterize")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", dir, err)
	}
	return &LocalStorage{dir: dir}, nil
}

// TempDir returns the workspace directory.
func (s *LocalStorage) TempDir() string {
	return s.dir
}

// SaveTemp writes data to a uniquely named file in the workspace. An
// extension on name is kept so ffmpeg can infer the input format:
// "metadata.txt" becomes "metadata_<random>.txt".
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)
	f, err := os.CreateTemp(s.dir, base+"_*"+ext)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}

	path := f.Name()
	_, err = io.Copy(f, data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// LoadTemp opens a workspace file. The caller closes the reader.
func (s *LocalStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if !s.contains(path) {
		return nil, fmt.Errorf("load %s: %w", path, ErrOutsideWorkspace)
	}

	f, err := os.Open(path) // #nosec G304 - confined to the workspace
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// CleanupTemp removes every listed workspace file. Missing files and empty
// entries are ignored. All failures are reported together.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if !s.contains(p) {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, ErrOutsideWorkspace))
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// UploadToS3 always fails with ErrS3NotConfigured; see S3Storage.
func (s *LocalStorage) UploadToS3(context.Context, string, io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}

func (s *LocalStorage) contains(path string) bool {
	rel, err := filepath.Rel(s.dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
