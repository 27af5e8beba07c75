// Package run provides the Run aggregate that tracks one chapter generation
// pass over an audiobook, plus a repository port for keeping runs around.
package run

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/chapterize/internal/chapters"
	"github.com/maauso/chapterize/internal/run/id"
)

// Status represents the current state of a Run.
type Status string

const (
	// StatusPending indicates the run has been created but not started.
	StatusPending Status = "PENDING"
	// StatusDetecting indicates silence detection is in progress.
	StatusDetecting Status = "DETECTING"
	// StatusClassifying indicates boundaries are being classified.
	StatusClassifying Status = "CLASSIFYING"
	// StatusCompleted indicates a chapter list was produced.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the run stopped with an error.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// Without a classifier the run goes straight from DETECTING to COMPLETED.
var validTransitions = map[Status][]Status{
	StatusPending:     {StatusDetecting, StatusFailed},
	StatusDetecting:   {StatusClassifying, StatusCompleted, StatusFailed},
	StatusClassifying: {StatusCompleted, StatusFailed},
	StatusCompleted:   {},
	StatusFailed:      {},
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Run is one Generate invocation.
type Run struct {
	mu sync.RWMutex

	// ID is the unique identifier for this run.
	ID string
	// AudioPath is the audiobook being processed.
	AudioPath string
	// Wanted is the number of chapters requested.
	Wanted int
	// Status is the current run state.
	Status Status
	// Candidates is the number of boundaries selected for classification.
	Candidates int
	// Processed counts boundaries already classified, including skipped ones.
	Processed int
	// Failed counts boundaries skipped because extraction or classification errored.
	Failed int
	// Downgraded counts classifier answers rejected for naming an unknown title.
	Downgraded int
	// Progress is the percentage of completion (0-100).
	Progress int
	// Chapters is the result once the run completes.
	Chapters []chapters.Chapter
	// Error contains the failure message if the run failed.
	Error string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a PENDING run with a generated ID.
func New(audioPath string, wanted int) *Run {
	return NewWithID(id.Generate(), audioPath, wanted)
}

// NewWithID creates a PENDING run with the given ID.
func NewWithID(runID, audioPath string, wanted int) *Run {
	now := time.Now()
	return &Run{
		ID:        runID,
		AudioPath: audioPath,
		Wanted:    wanted,
		Status:    StatusPending,
		Chapters:  make([]chapters.Chapter, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the run status.
// Returns ErrInvalidTransition if the transition is not allowed.
func (r *Run) TransitionTo(status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(status)
}

func (r *Run) transitionLocked(status Status) error {
	if !canTransition(r.Status, status) {
		return ErrInvalidTransition
	}

	r.Status = status
	r.UpdatedAt = time.Now()

	switch status {
	case StatusDetecting:
		r.StartedAt = r.UpdatedAt
	case StatusCompleted, StatusFailed:
		r.CompletedAt = r.UpdatedAt
	}
	return nil
}

// StartDetecting moves a pending run to DETECTING.
func (r *Run) StartDetecting() error {
	return r.TransitionTo(StatusDetecting)
}

// StartClassifying moves the run to CLASSIFYING with the number of
// boundaries it is about to classify.
func (r *Run) StartClassifying(candidates int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.transitionLocked(StatusClassifying); err != nil {
		return err
	}
	r.Candidates = candidates
	r.Processed = 0
	r.Progress = 0
	return nil
}

// RecordBoundary notes that one more boundary has been handled and
// recomputes progress.
func (r *Run) RecordBoundary(failed, downgraded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Processed++
	if failed {
		r.Failed++
	}
	if downgraded {
		r.Downgraded++
	}
	if r.Candidates > 0 {
		r.Progress = min(100, r.Processed*100/r.Candidates)
	}
	r.UpdatedAt = time.Now()
}

// Complete stores the chapter list and moves the run to COMPLETED.
func (r *Run) Complete(list []chapters.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.transitionLocked(StatusCompleted); err != nil {
		return err
	}
	r.Chapters = slices.Clone(list)
	if r.Chapters == nil {
		r.Chapters = make([]chapters.Chapter, 0)
	}
	r.Progress = 100
	return nil
}

// Fail moves the run to FAILED with an error message.
func (r *Run) Fail(errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.transitionLocked(StatusFailed); err != nil {
		return err
	}
	r.Error = errMsg
	return nil
}

// GetStatus returns the current run status.
func (r *Run) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// IsTerminal returns true if the run is COMPLETED or FAILED.
func (r *Run) IsTerminal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Elapsed returns how long the run has been going, or took once terminal.
func (r *Run) Elapsed() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch {
	case r.StartedAt.IsZero():
		return 0
	case r.CompletedAt.IsZero():
		return time.Since(r.StartedAt)
	default:
		return r.CompletedAt.Sub(r.StartedAt)
	}
}

// Clone creates a deep copy of the run for safe reads.
func (r *Run) Clone() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Run{
		ID:          r.ID,
		AudioPath:   r.AudioPath,
		Wanted:      r.Wanted,
		Status:      r.Status,
		Candidates:  r.Candidates,
		Processed:   r.Processed,
		Failed:      r.Failed,
		Downgraded:  r.Downgraded,
		Progress:    r.Progress,
		Chapters:    slices.Clone(r.Chapters),
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}
