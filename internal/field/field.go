package field

import "fmt"

// Field is a lattice field: a number of sites each carrying a fixed number
// of real components.
type Field interface {
	// Norm2 returns the squared norm summed over all sites.
	Norm2() float64

	// Sites is the global number of lattice sites.
	Sites() int

	// Components is the number of real degrees of freedom per site.
	Components() int
}

// Point is a field element that can be optimized. F is the concrete field
// type itself, e.g. *Vector implements Point[*Vector].
type Point[F any] interface {
	Field

	// Scale returns a new field alpha*f. The receiver is not modified.
	Scale(alpha float64) F

	// Inner returns the real inner product <f, other>.
	Inner(other F) float64

	// Clone returns a deep copy.
	Clone() F

	// Assign overwrites the receiver with src in place.
	Assign(src F)
}

// Group supplies the manifold structure of a field type.
type Group[F any] interface {
	// Compose applies the perturbation delta at base and returns the new
	// point. The result must stay on the same manifold as base. Neither
	// argument is modified.
	Compose(delta, base F) (F, error)
}

// ShapeError is returned when two fields cannot be combined.
type ShapeError struct {
	Op       string
	Expected string
	Actual   string
}

func (e *ShapeError) Error() string {
	return "field: " + e.Op + ": shape mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}

// SameShape returns a *ShapeError for op unless got has the sites and
// components of want.
func SameShape(op string, want, got Field) error {
	if want.Sites() != got.Sites() || want.Components() != got.Components() {
		return &ShapeError{
			Op:       op,
			Expected: shape(want.Sites(), want.Components()),
			Actual:   shape(got.Sites(), got.Components()),
		}
	}
	return nil
}

func shape(sites, components int) string {
	return fmt.Sprintf("%dx%d", sites, components)
}
