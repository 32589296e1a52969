package store

import "path/filepath"

// Store persists the final iterate of optimization runs. Traces live next
// to the checkpoints, under the directories the store reports.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return ErrNotFound if a checkpoint doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveCheckpoint atomically saves the checkpoint of a run, replacing
	// any previous one.
	SaveCheckpoint(runID string, checkpoint *Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint of a run.
	LoadCheckpoint(runID string) (*Checkpoint, error)

	// ListCheckpoints returns metadata for all available checkpoints.
	ListCheckpoints() ([]CheckpointInfo, error)

	// DeleteCheckpoint removes the checkpoint together with the trace of
	// the run.
	DeleteCheckpoint(runID string) error

	// BaseDir is the directory traces are written under.
	BaseDir() string

	// RunDir is the directory holding the artifacts of a run.
	RunDir(runID string) string
}

// ErrNotFound is returned when a requested checkpoint or trace does not
// exist. Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run artifact.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

func runDir(baseDir, runID string) string {
	return filepath.Join(baseDir, "runs", runID)
}
