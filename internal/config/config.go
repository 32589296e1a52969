package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/fieldmin/internal/opt"
	"github.com/cwbudde/fieldmin/internal/problem"
)

// WarmStart configures the global search that picks the starting point of a
// flat problem before gradient descent.
type WarmStart struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	Iterations int     `yaml:"iterations" json:"iterations"`
	Population int     `yaml:"population" json:"population"`
	Seed       int64   `yaml:"seed" json:"seed"`
	Bound      float64 `yaml:"bound" json:"bound"` // search box is [-Bound, Bound] per coordinate
}

// RunConfig describes one optimization run. It is persisted with every
// checkpoint so a run can be resumed with identical settings.
type RunConfig struct {
	Problem string  `yaml:"problem" json:"problem"`
	Dim     int     `yaml:"dim" json:"dim"`     // coordinates of flat problems
	Sites   int     `yaml:"sites" json:"sites"` // lattice sites of field problems
	Start   float64 `yaml:"start" json:"start"` // initial value of every coordinate
	Seed    int64   `yaml:"seed" json:"seed"`

	Eps        float64 `yaml:"eps" json:"eps"`
	MaxIter    int     `yaml:"maxiter" json:"maxiter"`
	Step       float64 `yaml:"step" json:"step"`
	LogEvery   int     `yaml:"log_functional_every" json:"logFunctionalEvery"`
	LineSearch bool    `yaml:"line_search" json:"lineSearch"`

	WarmStart WarmStart `yaml:"warm_start" json:"warmStart"`
}

// Default returns the configuration used when neither a file nor flags
// override a value.
func Default() RunConfig {
	o := opt.DefaultConfig()
	return RunConfig{
		Problem:    "quadratic",
		Dim:        2,
		Sites:      8,
		Start:      10,
		Seed:       42,
		Eps:        o.Eps,
		MaxIter:    o.MaxIter,
		Step:       o.Step,
		LogEvery:   o.LogFunctionalEvery,
		LineSearch: o.LineSearch,
		WarmStart: WarmStart{
			Enabled:    false,
			Iterations: 100,
			Population: 20,
			Seed:       42,
			Bound:      5,
		},
	}
}

// Load reads a YAML run configuration. Fields absent from the file keep
// their defaults; unknown fields are rejected.
func Load(path string) (RunConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses a YAML run configuration from r on top of Default.
func Decode(r io.Reader) (RunConfig, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return RunConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

// Validate checks the run-level fields and the optimizer parameters.
func (c RunConfig) Validate() error {
	if c.Problem == "" {
		return &Error{Field: "problem", Reason: "cannot be empty"}
	}
	if !problem.Known(c.Problem) {
		return &Error{Field: "problem", Reason: fmt.Sprintf("unknown %q (known: %s)", c.Problem, strings.Join(problem.Names(), ", "))}
	}
	if c.Dim <= 0 {
		return &Error{Field: "dim", Reason: "must be positive"}
	}
	if least := problem.MinDim(c.Problem); c.Dim < least {
		return &Error{Field: "dim", Reason: fmt.Sprintf("must be at least %d for %s", least, c.Problem)}
	}
	if c.Sites <= 0 {
		return &Error{Field: "sites", Reason: "must be positive"}
	}
	if c.WarmStart.Enabled {
		if c.WarmStart.Iterations <= 0 {
			return &Error{Field: "warm_start.iterations", Reason: "must be positive"}
		}
		if c.WarmStart.Bound <= 0 {
			return &Error{Field: "warm_start.bound", Reason: "must be positive"}
		}
	}
	if err := c.Optimizer().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Optimizer returns the gradient descent parameters of the run.
func (c RunConfig) Optimizer() opt.Config {
	return opt.Config{
		Eps:                c.Eps,
		MaxIter:            c.MaxIter,
		Step:               c.Step,
		LogFunctionalEvery: c.LogEvery,
		LineSearch:         c.LineSearch,
	}
}

// Error reports an invalid run configuration field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return "config: " + e.Field + " " + e.Reason
}
