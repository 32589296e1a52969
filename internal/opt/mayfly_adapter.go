package opt

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// minMayflyPopulation is the smallest population mayfly v0.1.0 accepts.
const minMayflyPopulation = 20

// Mayfly wraps the external Mayfly library as a GlobalSearch, used to warm
// start gradient descent on flat problems.
type Mayfly struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a Mayfly warm-start search. Populations below the
// library minimum are raised to it.
func NewMayfly(maxIters, popSize int, seed int64) *Mayfly {
	if popSize < minMayflyPopulation {
		popSize = minMayflyPopulation
	}
	return &Mayfly{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Search runs Mayfly in the box. The library only supports scalar bounds,
// so the box is widened to [min(lower), max(upper)] in every dimension.
func (m *Mayfly) Search(eval func([]float64) float64, lower, upper []float64) ([]float64, float64, error) {
	dim := len(lower)
	if dim == 0 || len(upper) != dim {
		return nil, 0, fmt.Errorf("mayfly: bounds must be non-empty and equal length, got %d and %d", len(lower), len(upper))
	}

	lo, hi := lower[0], upper[0]
	for i := 1; i < dim; i++ {
		lo = min(lo, lower[i])
		hi = max(hi, upper[i])
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = lo
	config.UpperBound = hi
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, 0, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	slog.Debug("Warm start complete",
		"dim", dim,
		"iterations", m.maxIters,
		"population", m.popSize,
		"cost", result.GlobalBest.Cost,
	)
	return result.GlobalBest.Position, result.GlobalBest.Cost, nil
}
