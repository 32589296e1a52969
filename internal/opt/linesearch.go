package opt

import (
	"errors"
	"math"

	"github.com/cwbudde/fieldmin/internal/field"
)

// ErrLineSearchFailure is returned when the directional derivative at the
// trial point is not finite.
var ErrLineSearchFailure = errors.New("line search: directional derivative is not finite")

const defaultMaxStepFactor = 4.0

// LineSearcher refines a base step along a search direction. The result is
// a dimensionless factor c so that the step actually taken is c·baseStep.
// A negative baseStep searches against direction.
type LineSearcher[F any] interface {
	Search(direction, point, gradDirection F, grad Gradient[F], baseStep float64) (float64, error)
}

// QuadraticLineSearch models the functional along the search line as a
// parabola. The directional derivative is taken at the current point
// (from gradDirection) and at the trial point compose(baseStep·direction,
// point); the returned factor locates the zero of the linear interpolant
// between the two. The point itself is left untouched.
type QuadraticLineSearch[F field.Point[F]] struct {
	Group field.Group[F]

	// MaxFactor caps the returned factor. It is also returned when the
	// model has no minimum along the line. Zero means 4.
	MaxFactor float64
}

func (q *QuadraticLineSearch[F]) Search(direction, point, gradDirection F, grad Gradient[F], baseStep float64) (float64, error) {
	maxFactor := q.MaxFactor
	if maxFactor <= 0 {
		maxFactor = defaultMaxStepFactor
	}

	if err := field.SameShape("line search", direction, gradDirection); err != nil {
		return 0, err
	}
	sv0 := direction.Inner(gradDirection)
	if sv0 == 0 {
		return 0, nil
	}

	trial, err := q.Group.Compose(direction.Scale(baseStep), point.Clone())
	if err != nil {
		return 0, err
	}
	dv1, err := grad(trial)
	if err != nil {
		return 0, err
	}
	if err := field.SameShape("line search", direction, dv1); err != nil {
		return 0, err
	}
	sv1 := direction.Inner(dv1)
	if math.IsNaN(sv1) || math.IsInf(sv1, 0) {
		return 0, ErrLineSearchFailure
	}

	// f'(t) ∝ sv0 + (sv1 - sv0)·t vanishes at t = sv0 / (sv0 - sv1)
	c := sv0 / (sv0 - sv1)
	if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 || c > maxFactor {
		return maxFactor, nil
	}
	return c, nil
}
