package opt

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/fieldmin/internal/field"
)

func TestQuadraticLineSearchExactOnParabola(t *testing.T) {
	_, df := bowl()
	x := scalar(t, 10)
	d, err := df(x)
	require.NoError(t, err)

	ls := &QuadraticLineSearch[*field.Vector]{Group: field.Additive{}, MaxFactor: 10}
	c, err := ls.Search(d, x, d, df, -0.1)
	require.NoError(t, err)

	// the minimum at 0 is reached by stepping 5 base steps of 0.1·20
	assert.InDelta(t, 5, c, 1e-12)
	assert.Equal(t, 10.0, x.At(0, 0), "search must not move the point")
}

func TestQuadraticLineSearchCapsFactor(t *testing.T) {
	_, df := bowl()
	x := scalar(t, 10)
	d, _ := df(x)

	ls := &QuadraticLineSearch[*field.Vector]{Group: field.Additive{}}
	c, err := ls.Search(d, x, d, df, -0.1)
	require.NoError(t, err)
	assert.Equal(t, defaultMaxStepFactor, c)
}

func TestQuadraticLineSearchZeroDerivative(t *testing.T) {
	_, df := bowl()
	x := scalar(t, 0)
	d, _ := df(x)

	ls := &QuadraticLineSearch[*field.Vector]{Group: field.Additive{}}
	c, err := ls.Search(d, x, d, df, -0.1)
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestQuadraticLineSearchNonConvexReturnsMax(t *testing.T) {
	// f(x) = -x², df = -2x: the derivative grows along the descent line
	df := func(x *field.Vector) (*field.Vector, error) { return x.Scale(-2), nil }
	x := scalar(t, 1)
	d, _ := df(x)

	ls := &QuadraticLineSearch[*field.Vector]{Group: field.Additive{}, MaxFactor: 3}
	c, err := ls.Search(d, x, d, df, -0.1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, c)
}

func TestQuadraticLineSearchNaNFails(t *testing.T) {
	x := scalar(t, 1)
	calls := 0
	df := func(x *field.Vector) (*field.Vector, error) {
		calls++
		if calls > 1 {
			return scalar(t, math.NaN()), nil
		}
		return x.Scale(2), nil
	}
	d, _ := df(x)

	ls := &QuadraticLineSearch[*field.Vector]{Group: field.Additive{}}
	_, err := ls.Search(d, x, d, df, -0.1)
	assert.ErrorIs(t, err, ErrLineSearchFailure)
}

func TestQuadraticLineSearchGradientErrorPropagates(t *testing.T) {
	boom := errors.New("no gradient")
	x := scalar(t, 1)
	d := x.Scale(2)
	df := func(*field.Vector) (*field.Vector, error) { return nil, boom }

	ls := &QuadraticLineSearch[*field.Vector]{Group: field.Additive{}}
	_, err := ls.Search(d, x, d, df, -0.1)
	assert.ErrorIs(t, err, boom)
}

func TestQuadraticLineSearchGradientShapeChange(t *testing.T) {
	x := scalar(t, 1)
	d := x.Scale(2)
	df := func(*field.Vector) (*field.Vector, error) {
		return field.VectorFrom([]float64{1, 2}, 1)
	}

	ls := &QuadraticLineSearch[*field.Vector]{Group: field.Additive{}}
	var shapeErr *field.ShapeError
	assert.NotPanics(t, func() {
		_, err := ls.Search(d, x, d, df, -0.1)
		assert.ErrorAs(t, err, &shapeErr)
	})
	require.NotNil(t, shapeErr)
	assert.Equal(t, "line search", shapeErr.Op)
	assert.Equal(t, "1x1", shapeErr.Expected)
	assert.Equal(t, "2x1", shapeErr.Actual)

	wide, err := field.VectorFrom([]float64{1, 2}, 1)
	require.NoError(t, err)
	_, err = ls.Search(d, x, wide, df, -0.1)
	assert.ErrorAs(t, err, &shapeErr)
}
