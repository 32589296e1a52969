package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cwbudde/fieldmin/internal/config"
)

// Point kinds stored in checkpoints.
const (
	KindVector   = "vector"
	KindMatrices = "matrices"
)

// PointSnapshot is the serialized form of a field point.
type PointSnapshot struct {
	// Kind selects the field type: KindVector or KindMatrices
	Kind string `json:"kind"`

	Sites      int `json:"sites"`
	Components int `json:"components"`

	// Values holds Sites*Components numbers, site-major
	Values []float64 `json:"values"`
}

func (p PointSnapshot) MarshalJSON() ([]byte, error) {
	type plain PointSnapshot
	return json.Marshal(struct {
		plain
		Values []jsonFloat `json:"values"`
	}{plain(p), toJSONFloats(p.Values)})
}

func (p *PointSnapshot) UnmarshalJSON(data []byte) error {
	type plain PointSnapshot
	aux := struct {
		*plain
		Values []jsonFloat `json:"values"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Values = fromJSONFloats(aux.Values)
	return nil
}

// Checkpoint is the final iterate of a run, saved so the run can be
// inspected or resumed.
//
// Only the point is saved; gradient descent keeps no other state between
// iterations, so resuming from a checkpoint continues exactly where the run
// stopped. The iteration budget of a resumed run starts again at zero.
type Checkpoint struct {
	// RunID is the unique identifier of the run
	RunID string `json:"runId"`

	// Point is the last iterate
	Point PointSnapshot `json:"point"`

	// Residual is the last computed per-dof RMS gradient
	Residual float64 `json:"residual"`

	// Value is f at Point
	Value float64 `json:"value"`

	// Iterations counts iterations over the run and all its resumptions
	Iterations int `json:"iterations"`

	// Converged reports whether the last run met the tolerance
	Converged bool `json:"converged"`

	// Timestamp records when this checkpoint was created
	Timestamp time.Time `json:"timestamp"`

	// Config is the run configuration, reused on resume
	Config config.RunConfig `json:"config"`
}

// MarshalJSON writes a diverged run's non-finite residual and value as
// strings.
func (c Checkpoint) MarshalJSON() ([]byte, error) {
	type plain Checkpoint
	return json.Marshal(struct {
		plain
		Residual jsonFloat `json:"residual"`
		Value    jsonFloat `json:"value"`
	}{plain(c), jsonFloat(c.Residual), jsonFloat(c.Value)})
}

func (c *Checkpoint) UnmarshalJSON(data []byte) error {
	type plain Checkpoint
	aux := struct {
		*plain
		Residual jsonFloat `json:"residual"`
		Value    jsonFloat `json:"value"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Residual, c.Value = float64(aux.Residual), float64(aux.Value)
	return nil
}

// CheckpointInfo is checkpoint metadata without the point values.
type CheckpointInfo struct {
	RunID      string    `json:"runId"`
	Problem    string    `json:"problem"`
	Residual   float64   `json:"residual"`
	Value      float64   `json:"value"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewCheckpoint creates a checkpoint stamped with the current time.
func NewCheckpoint(runID string, point PointSnapshot, residual, value float64, iterations int, converged bool, cfg config.RunConfig) *Checkpoint {
	return &Checkpoint{
		RunID:      runID,
		Point:      point,
		Residual:   residual,
		Value:      value,
		Iterations: iterations,
		Converged:  converged,
		Timestamp:  time.Now(),
		Config:     cfg,
	}
}

// ToInfo converts a full Checkpoint to CheckpointInfo.
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		RunID:      c.RunID,
		Problem:    c.Config.Problem,
		Residual:   c.Residual,
		Value:      c.Value,
		Iterations: c.Iterations,
		Converged:  c.Converged,
		Timestamp:  c.Timestamp,
	}
}

// Validate checks if the checkpoint has valid data.
func (c *Checkpoint) Validate() error {
	if c.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	switch c.Point.Kind {
	case KindVector, KindMatrices:
	default:
		return &ValidationError{Field: "Point.Kind", Reason: "unknown kind " + strconv.Quote(c.Point.Kind)}
	}
	if c.Point.Sites <= 0 {
		return &ValidationError{Field: "Point.Sites", Reason: "must be positive"}
	}
	if c.Point.Components <= 0 {
		return &ValidationError{Field: "Point.Components", Reason: "must be positive"}
	}
	if expected := c.Point.Sites * c.Point.Components; len(c.Point.Values) != expected {
		return &ValidationError{
			Field:  "Point.Values",
			Reason: fmt.Sprintf("length mismatch: expected %d values, got %d", expected, len(c.Point.Values)),
		}
	}
	// NaN and +Inf record a diverged run and are valid
	if c.Residual < 0 {
		return &ValidationError{Field: "Residual", Reason: "cannot be negative"}
	}
	if c.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if err := c.Config.Validate(); err != nil {
		return &ValidationError{Field: "Config", Reason: err.Error()}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this checkpoint can be resumed with the given
// configuration: the functional (including the seed that generates its
// target) and the field shape must match, optimizer parameters may differ.
func (c *Checkpoint) IsCompatible(cfg config.RunConfig) error {
	if c.Config.Problem != cfg.Problem {
		return &CompatibilityError{
			Field:    "Problem",
			Expected: c.Config.Problem,
			Actual:   cfg.Problem,
		}
	}
	if c.Config.Dim != cfg.Dim {
		return &CompatibilityError{
			Field:    "Dim",
			Expected: strconv.Itoa(c.Config.Dim),
			Actual:   strconv.Itoa(cfg.Dim),
		}
	}
	if c.Config.Sites != cfg.Sites {
		return &CompatibilityError{
			Field:    "Sites",
			Expected: strconv.Itoa(c.Config.Sites),
			Actual:   strconv.Itoa(cfg.Sites),
		}
	}
	if c.Config.Seed != cfg.Seed {
		return &CompatibilityError{
			Field:    "Seed",
			Expected: strconv.FormatInt(c.Config.Seed, 10),
			Actual:   strconv.FormatInt(cfg.Seed, 10),
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
