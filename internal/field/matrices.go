package field

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var (
	_ Point[*Matrices] = (*Matrices)(nil)
	_ Group[*Matrices] = SpecialOrthogonal{}
)

// Matrices is a field carrying one n×n real matrix per site. Group elements
// of SO(n) and algebra elements of so(n) share this representation.
type Matrices struct {
	n     int
	sites []*mat.Dense
}

// NewMatrices returns a field of identity matrices.
func NewMatrices(sites, n int) *Matrices {
	if sites < 0 || n <= 0 {
		panic("field: bad matrix field shape")
	}
	m := &Matrices{n: n, sites: make([]*mat.Dense, sites)}
	for s := range m.sites {
		d := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			d.Set(i, i, 1)
		}
		m.sites[s] = d
	}
	return m
}

// RandomRotations returns a field of random SO(n) matrices drawn by
// exponentiating random so(n) elements of the given spread.
func RandomRotations(sites, n int, spread float64, rng *rand.Rand) *Matrices {
	gen := &Matrices{n: n, sites: make([]*mat.Dense, sites)}
	for s := range gen.sites {
		d := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				v := spread * rng.NormFloat64()
				d.Set(i, j, v)
				d.Set(j, i, -v)
			}
		}
		gen.sites[s] = d
	}
	out, err := SpecialOrthogonal{}.Compose(gen, NewMatrices(sites, n))
	if err != nil {
		panic(err)
	}
	return out
}

// MatricesFrom builds a field from site-major row-major values.
func MatricesFrom(values []float64, n int) (*Matrices, error) {
	if n <= 0 {
		return nil, fmt.Errorf("field: matrix order must be positive, got %d", n)
	}
	if len(values)%(n*n) != 0 {
		return nil, fmt.Errorf("field: %d values do not divide into %dx%d matrices", len(values), n, n)
	}
	m := &Matrices{n: n, sites: make([]*mat.Dense, len(values)/(n*n))}
	for s := range m.sites {
		buf := make([]float64, n*n)
		copy(buf, values[s*n*n:(s+1)*n*n])
		m.sites[s] = mat.NewDense(n, n, buf)
	}
	return m, nil
}

// Order returns n.
func (m *Matrices) Order() int { return m.n }

// Site returns the matrix stored at site s. Mutating it mutates the field.
func (m *Matrices) Site(s int) *mat.Dense { return m.sites[s] }

func (m *Matrices) Norm2() float64 {
	var sum float64
	for _, d := range m.sites {
		f := mat.Norm(d, 2)
		sum += f * f
	}
	return sum
}

func (m *Matrices) Sites() int { return len(m.sites) }

func (m *Matrices) Components() int { return m.n * m.n }

func (m *Matrices) Scale(alpha float64) *Matrices {
	out := &Matrices{n: m.n, sites: make([]*mat.Dense, len(m.sites))}
	for s, d := range m.sites {
		var scaled mat.Dense
		scaled.Scale(alpha, d)
		out.sites[s] = &scaled
	}
	return out
}

func (m *Matrices) Inner(other *Matrices) float64 {
	if other.n != m.n || len(other.sites) != len(m.sites) {
		panic(&ShapeError{Op: "inner", Expected: shape(len(m.sites), m.n*m.n), Actual: shape(len(other.sites), other.n*other.n)})
	}
	var (
		sum  float64
		prod mat.Dense
	)
	for s, d := range m.sites {
		prod.Reset()
		prod.MulElem(d, other.sites[s])
		sum += mat.Sum(&prod)
	}
	return sum
}

func (m *Matrices) Clone() *Matrices {
	out := &Matrices{n: m.n, sites: make([]*mat.Dense, len(m.sites))}
	for s, d := range m.sites {
		out.sites[s] = mat.DenseCopyOf(d)
	}
	return out
}

func (m *Matrices) Assign(src *Matrices) {
	if m == src {
		return
	}
	m.n = src.n
	m.sites = make([]*mat.Dense, len(src.sites))
	for s, d := range src.sites {
		m.sites[s] = mat.DenseCopyOf(d)
	}
}

// Values flattens the field site-major, each matrix row-major.
func (m *Matrices) Values() []float64 {
	out := make([]float64, 0, len(m.sites)*m.n*m.n)
	for _, d := range m.sites {
		for i := 0; i < m.n; i++ {
			out = append(out, mat.Row(nil, i, d)...)
		}
	}
	return out
}

// ProjectAlgebra returns the antisymmetric part (X - Xᵀ)/2 of every site,
// i.e. the projection onto so(n).
func (m *Matrices) ProjectAlgebra() *Matrices {
	out := &Matrices{n: m.n, sites: make([]*mat.Dense, len(m.sites))}
	for s, d := range m.sites {
		out.sites[s] = antisymmetric(d)
	}
	return out
}

// Reunitarize projects every site back onto SO(n) with a polar
// decomposition, removing rounding drift accumulated by repeated updates.
func (m *Matrices) Reunitarize() error {
	for s, d := range m.sites {
		var svd mat.SVD
		if ok := svd.Factorize(d, mat.SVDFull); !ok {
			return fmt.Errorf("field: svd failed at site %d", s)
		}
		var u, v, r mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)
		r.Mul(&u, v.T())
		if mat.Det(&r) < 0 {
			// flip the column belonging to the smallest singular value
			col := m.n - 1
			for i := 0; i < m.n; i++ {
				u.Set(i, col, -u.At(i, col))
			}
			r.Mul(&u, v.T())
		}
		m.sites[s] = &r
	}
	return nil
}

// SpecialOrthogonal is the rotation group SO(n) acting by left
// multiplication: compose(delta, base) = exp(A(delta)) · base, where A
// projects delta onto so(n).
type SpecialOrthogonal struct{}

func (SpecialOrthogonal) Compose(delta, base *Matrices) (*Matrices, error) {
	if delta.n != base.n || len(delta.sites) != len(base.sites) {
		return nil, &ShapeError{
			Op:       "compose",
			Expected: shape(len(base.sites), base.n*base.n),
			Actual:   shape(len(delta.sites), delta.n*delta.n),
		}
	}
	out := &Matrices{n: base.n, sites: make([]*mat.Dense, len(base.sites))}
	for s, b := range base.sites {
		var e, r mat.Dense
		e.Exp(antisymmetric(delta.sites[s]))
		r.Mul(&e, b)
		out.sites[s] = &r
	}
	return out, nil
}

func antisymmetric(d *mat.Dense) *mat.Dense {
	var a mat.Dense
	a.Sub(d, d.T())
	a.Scale(0.5, &a)
	return &a
}
