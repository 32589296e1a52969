package telemetry

import (
	"math"
	"sync"

	"github.com/cwbudde/fieldmin/internal/opt"
)

var _ opt.Monitor = (*History)(nil)

// Record is one convergence entry.
type Record struct {
	Iteration int
	Residual  float64
	Tolerance float64
}

// History keeps the residual history and diagnostic lines of the runs it
// monitors. It is safe for concurrent use.
type History struct {
	mu       sync.Mutex
	records  []Record
	messages []string
	best     float64
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{best: math.Inf(1)}
}

func (h *History) Convergence(iteration int, residual, tolerance float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, Record{Iteration: iteration, Residual: residual, Tolerance: tolerance})
	if residual < h.best {
		h.best = residual
	}
}

func (h *History) Log(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msg)
}

// Len returns the number of convergence records.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Last returns the most recent record and false if there is none.
func (h *History) Last() (Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) == 0 {
		return Record{}, false
	}
	return h.records[len(h.records)-1], true
}

// Best returns the smallest residual seen so far, +Inf if none.
func (h *History) Best() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.best
}

// Records returns a copy of all records.
func (h *History) Records() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Record{}, h.records...)
}

// Residuals returns the residual of every record in order.
func (h *History) Residuals() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]float64, len(h.records))
	for i, r := range h.records {
		out[i] = r.Residual
	}
	return out
}

// Messages returns a copy of the diagnostic lines.
func (h *History) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.messages...)
}

// Reset clears the history.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = nil
	h.messages = nil
	h.best = math.Inf(1)
}
