package field

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

var (
	_ Point[*Vector] = (*Vector)(nil)
	_ Group[*Vector] = Additive{}
)

// Vector is a flat real field of sites*components values stored site-major.
type Vector struct {
	sites      int
	components int
	data       []float64
}

// NewVector returns a zero field with the given shape.
func NewVector(sites, components int) *Vector {
	if sites < 0 || components < 0 {
		panic("field: negative vector shape")
	}
	return &Vector{
		sites:      sites,
		components: components,
		data:       make([]float64, sites*components),
	}
}

// VectorFrom wraps a copy of values as a field with the given number of
// components per site. len(values) must be a multiple of components.
func VectorFrom(values []float64, components int) (*Vector, error) {
	if components <= 0 {
		return nil, fmt.Errorf("field: components must be positive, got %d", components)
	}
	if len(values)%components != 0 {
		return nil, fmt.Errorf("field: %d values do not divide into sites of %d components", len(values), components)
	}
	data := make([]float64, len(values))
	copy(data, values)
	return &Vector{
		sites:      len(values) / components,
		components: components,
		data:       data,
	}, nil
}

func (v *Vector) Norm2() float64 {
	return floats.Dot(v.data, v.data)
}

func (v *Vector) Sites() int { return v.sites }

func (v *Vector) Components() int { return v.components }

func (v *Vector) Scale(alpha float64) *Vector {
	out := &Vector{sites: v.sites, components: v.components, data: make([]float64, len(v.data))}
	floats.ScaleTo(out.data, alpha, v.data)
	return out
}

func (v *Vector) Inner(other *Vector) float64 {
	if len(other.data) != len(v.data) {
		panic(&ShapeError{Op: "inner", Expected: shape(v.sites, v.components), Actual: shape(other.sites, other.components)})
	}
	return floats.Dot(v.data, other.data)
}

func (v *Vector) Clone() *Vector {
	out := &Vector{sites: v.sites, components: v.components, data: make([]float64, len(v.data))}
	copy(out.data, v.data)
	return out
}

// Assign copies src into v, adopting its shape.
func (v *Vector) Assign(src *Vector) {
	if v == src {
		return
	}
	if cap(v.data) < len(src.data) {
		v.data = make([]float64, len(src.data))
	}
	v.data = v.data[:len(src.data)]
	copy(v.data, src.data)
	v.sites, v.components = src.sites, src.components
}

// Values returns the underlying storage. Mutating it mutates the field.
func (v *Vector) Values() []float64 {
	return v.data
}

// At returns component c of site s.
func (v *Vector) At(s, c int) float64 {
	return v.data[s*v.components+c]
}

// Set sets component c of site s.
func (v *Vector) Set(s, c int, value float64) {
	v.data[s*v.components+c] = value
}

// Additive is the trivial group of a flat space: composition is addition.
type Additive struct{}

func (Additive) Compose(delta, base *Vector) (*Vector, error) {
	if delta.sites != base.sites || delta.components != base.components {
		return nil, &ShapeError{
			Op:       "compose",
			Expected: shape(base.sites, base.components),
			Actual:   shape(delta.sites, delta.components),
		}
	}
	out := &Vector{sites: base.sites, components: base.components, data: make([]float64, len(base.data))}
	floats.AddTo(out.data, base.data, delta.data)
	return out, nil
}
