package opt

// GlobalSearch finds a good starting point for a local method.
type GlobalSearch interface {
	// Search minimizes eval inside the box [lower, upper].
	// Returns the best position found and its cost.
	Search(eval func([]float64) float64, lower, upper []float64) ([]float64, float64, error)
}
