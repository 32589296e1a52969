// Package problem provides the built-in functionals the command line
// minimizes.
package problem

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/cwbudde/fieldmin/internal/field"
	"github.com/cwbudde/fieldmin/internal/opt"
)

// Problem pairs a functional with its gradient.
type Problem[F field.Point[F]] struct {
	Name  string
	Value opt.Functional[F]
	Grad  opt.Gradient[F]
}

// Flat is a problem on a flat vector space. Coordinates are stored one per
// site.
type Flat = Problem[*field.Vector]

const (
	NameQuadratic  = "quadratic"
	NameRosenbrock = "rosenbrock"
	NameRotation   = "rotation"
)

// ErrUnknownProblem is returned for a name no problem is registered under.
var ErrUnknownProblem = errors.New("unknown problem")

var flat = map[string]func(dim int) Flat{
	NameQuadratic: func(dim int) Flat {
		center := make([]float64, dim)
		for i := range center {
			center[i] = 1
		}
		return Quadratic(center)
	},
	NameRosenbrock: func(int) Flat { return Rosenbrock() },
}

// Names lists every known problem, sorted.
func Names() []string {
	names := []string{NameRotation}
	for name := range flat {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Known reports whether name is a registered problem.
func Known(name string) bool {
	if name == NameRotation {
		return true
	}
	_, ok := flat[name]
	return ok
}

// IsFlat reports whether name is a flat problem, i.e. one Lookup returns
// and a warm start can search.
func IsFlat(name string) bool {
	_, ok := flat[name]
	return ok
}

// MinDim is the smallest number of coordinates the named problem is
// defined for. The extended Rosenbrock function couples coordinates in
// pairs and is identically zero on a single one.
func MinDim(name string) int {
	if name == NameRosenbrock {
		return 2
	}
	return 1
}

// Lookup returns the flat problem registered under name for dim
// coordinates. Both flat problems have their unique minimum at
// (1, ..., 1) for every dimension Lookup accepts.
func Lookup(name string, dim int) (Flat, error) {
	mk, ok := flat[name]
	if !ok {
		return Flat{}, fmt.Errorf("%w: %q (flat problems: quadratic, rosenbrock)", ErrUnknownProblem, name)
	}
	if least := MinDim(name); dim < least {
		return Flat{}, fmt.Errorf("problem %s: dimension must be at least %d, got %d", name, least, dim)
	}
	return mk(dim), nil
}

// Objective adapts a flat problem to a plain cost function over raw
// coordinates, as used by a GlobalSearch. Evaluation errors map to +Inf.
func Objective(p Flat) func([]float64) float64 {
	return func(x []float64) float64 {
		v, err := field.VectorFrom(x, 1)
		if err != nil {
			return math.Inf(1)
		}
		f, err := p.Value(v)
		if err != nil || math.IsNaN(f) {
			return math.Inf(1)
		}
		return f
	}
}
