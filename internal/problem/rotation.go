package problem

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/fieldmin/internal/field"
)

// RotationAlignment measures the distance of a rotation field to a fixed
// target, f(R) = Σ_s ||R_s - T_s||²_F. The gradient is the left-invariant
// one in so(n), -2·A(T_s R_sᵀ), so descending with SpecialOrthogonal moves
// every R_s towards T_s along a geodesic.
func RotationAlignment(target *field.Matrices) Problem[*field.Matrices] {
	t := target.Clone()
	tv := t.Values()
	return Problem[*field.Matrices]{
		Name: NameRotation,
		Value: func(x *field.Matrices) (float64, error) {
			if err := sameShape(x, t); err != nil {
				return 0, err
			}
			d := floats.Distance(x.Values(), tv, 2)
			return d * d, nil
		},
		Grad: func(x *field.Matrices) (*field.Matrices, error) {
			if err := sameShape(x, t); err != nil {
				return nil, err
			}
			n := x.Order()
			values := make([]float64, 0, x.Sites()*n*n)
			for s := 0; s < x.Sites(); s++ {
				var tr mat.Dense
				tr.Mul(t.Site(s), x.Site(s).T())
				for i := 0; i < n; i++ {
					values = append(values, mat.Row(nil, i, &tr)...)
				}
			}
			m, err := field.MatricesFrom(values, n)
			if err != nil {
				return nil, err
			}
			return m.ProjectAlgebra().Scale(-2), nil
		},
	}
}

func sameShape(x, target *field.Matrices) error {
	if x.Order() != target.Order() || x.Sites() != target.Sites() {
		return &field.ShapeError{
			Op:       "evaluate",
			Expected: fmt.Sprintf("%d sites of %dx%d", target.Sites(), target.Order(), target.Order()),
			Actual:   fmt.Sprintf("%d sites of %dx%d", x.Sites(), x.Order(), x.Order()),
		}
	}
	return nil
}
