package problem

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize/functions"

	"github.com/cwbudde/fieldmin/internal/field"
)

// Quadratic is the bowl f(x) = Σ (x_i - c_i)² with gradient 2(x - c).
func Quadratic(center []float64) Flat {
	c := append([]float64{}, center...)
	return Flat{
		Name: NameQuadratic,
		Value: func(x *field.Vector) (float64, error) {
			if err := checkLen(x, len(c)); err != nil {
				return 0, err
			}
			d := floats.Distance(x.Values(), c, 2)
			return d * d, nil
		},
		Grad: func(x *field.Vector) (*field.Vector, error) {
			if err := checkLen(x, len(c)); err != nil {
				return nil, err
			}
			g := make([]float64, len(c))
			floats.SubTo(g, x.Values(), c)
			floats.Scale(2, g)
			return field.VectorFrom(g, 1)
		},
	}
}

// Rosenbrock is the extended Rosenbrock function on any number of
// coordinates.
func Rosenbrock() Flat {
	var fn functions.ExtendedRosenbrock
	return Flat{
		Name: NameRosenbrock,
		Value: func(x *field.Vector) (float64, error) {
			return fn.Func(x.Values()), nil
		},
		Grad: func(x *field.Vector) (*field.Vector, error) {
			g := make([]float64, x.Sites()*x.Components())
			fn.Grad(g, x.Values())
			return field.VectorFrom(g, x.Components())
		},
	}
}

func checkLen(x *field.Vector, n int) error {
	if x.Sites()*x.Components() != n {
		return &field.ShapeError{
			Op:       "evaluate",
			Expected: fmt.Sprintf("%d values", n),
			Actual:   fmt.Sprintf("%d values", x.Sites()*x.Components()),
		}
	}
	return nil
}
