package opt

import (
	"math"
	"strconv"
)

// Config holds the parameters of a gradient descent run. A Config is copied
// into the optimizer at construction and never changes afterwards.
type Config struct {
	// Eps is the convergence tolerance on the per-degree-of-freedom RMS
	// gradient magnitude. Zero is allowed and only converges on an exactly
	// vanishing gradient.
	Eps float64

	// MaxIter is the iteration budget.
	MaxIter int

	// Step is the base step size.
	Step float64

	// LogFunctionalEvery sets how often f(x) is evaluated and logged.
	// Iteration 0 is always logged.
	LogFunctionalEvery int

	// LineSearch enables the adaptive step-size correction.
	LineSearch bool
}

// DefaultConfig returns the default gradient descent parameters.
func DefaultConfig() Config {
	return Config{
		Eps:                1e-8,
		MaxIter:            1000,
		Step:               1e-3,
		LogFunctionalEvery: 10,
		LineSearch:         false,
	}
}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	if c.MaxIter <= 0 {
		return &ConfigError{Field: "MaxIter", Reason: "must be positive, got " + strconv.Itoa(c.MaxIter)}
	}
	if c.LogFunctionalEvery <= 0 {
		return &ConfigError{Field: "LogFunctionalEvery", Reason: "must be positive, got " + strconv.Itoa(c.LogFunctionalEvery)}
	}
	if math.IsNaN(c.Eps) || math.IsInf(c.Eps, 0) || c.Eps < 0 {
		return &ConfigError{Field: "Eps", Reason: "must be finite and non-negative"}
	}
	if math.IsNaN(c.Step) || math.IsInf(c.Step, 0) {
		return &ConfigError{Field: "Step", Reason: "must be finite"}
	}
	return nil
}

// ErrInvalidConfig matches every *ConfigError with errors.Is.
var ErrInvalidConfig = &ConfigError{}

// ConfigError reports invalid optimizer construction parameters.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid optimizer configuration"
	}
	return "invalid optimizer configuration: " + e.Field + " " + e.Reason
}

func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}
