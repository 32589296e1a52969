package telemetry

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/cwbudde/fieldmin/internal/opt"
)

var _ opt.Timer = (*Timings)(nil)

// Timing is the accumulated wall-clock time of one label.
type Timing struct {
	Label string
	Total time.Duration
	Calls int
}

// Timings accumulates wall-clock time per label. It is safe for
// concurrent use, so one instance can time all runs of a batch.
type Timings struct {
	mu     sync.Mutex
	totals map[string]*Timing
	now    func() time.Time
}

// NewTimings creates an empty timer.
func NewTimings() *Timings {
	return &Timings{totals: make(map[string]*Timing), now: time.Now}
}

// Start begins a measurement for label; calling the returned function ends
// it. Calling it more than once has no further effect.
func (t *Timings) Start(label string) func() {
	start := t.now()
	var once sync.Once
	return func() {
		once.Do(func() {
			elapsed := t.now().Sub(start)

			t.mu.Lock()
			defer t.mu.Unlock()

			entry, ok := t.totals[label]
			if !ok {
				entry = &Timing{Label: label}
				t.totals[label] = entry
			}
			entry.Total += elapsed
			entry.Calls++
		})
	}
}

// Get returns the timing of one label.
func (t *Timings) Get(label string) (Timing, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.totals[label]
	if !ok {
		return Timing{}, false
	}
	return *entry, true
}

// Report returns all timings, longest total first.
func (t *Timings) Report() []Timing {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Timing, 0, len(t.totals))
	for _, entry := range t.totals {
		out = append(out, *entry)
	}
	slices.SortFunc(out, func(a, b Timing) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}
