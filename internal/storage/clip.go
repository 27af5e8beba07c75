package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// ErrClipSlotBusy is returned when the clip slot could not be locked.
var ErrClipSlotBusy = errors.New("clip slot is held by another run")

const clipLockRetry = 100 * time.Millisecond

// ClipSlot is an exclusively held scratch path for one audio clip at a time.
// Every boundary of a run overwrites the same file.
type ClipSlot struct {
	Path string
	lock *flock.Flock
}

// AcquireClip locks tempDir/clip.lock and returns the clip path with the
// given extension. Release must be called to free the slot.
func (s *LocalStorage) AcquireClip(ctx context.Context, ext string) (*ClipSlot, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	lock := flock.New(filepath.Join(s.dir, "clip.lock"))
	ok, err := lock.TryLockContext(ctx, clipLockRetry)
	if err != nil {
		return nil, fmt.Errorf("lock clip slot: %w", err)
	}
	if !ok {
		return nil, ErrClipSlotBusy
	}

	return &ClipSlot{
		Path: filepath.Join(s.dir, "clip"+ext),
		lock: lock,
	}, nil
}

// Release deletes the clip file and unlocks the slot. It is safe to call
// more than once.
func (c *ClipSlot) Release() error {
	if c == nil || c.lock == nil {
		return nil
	}

	var errs []error
	if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("remove clip: %w", err))
	}
	if err := c.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("unlock clip slot: %w", err))
	}
	c.lock = nil
	return errors.Join(errs...)
}
