package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cwbudde/fieldmin/internal/opt"
	"github.com/cwbudde/fieldmin/internal/store"
)

var _ opt.Monitor = (*TraceMonitor)(nil)

// TraceWriter is the part of store.TraceWriter a TraceMonitor needs.
type TraceWriter interface {
	Write(entry store.TraceEntry) error
}

// TraceMonitor persists every convergence record as a trace entry.
// Diagnostic lines are ignored. The first write error is logged and kept;
// later records are dropped so a broken trace never stops the optimizer.
type TraceMonitor struct {
	w   TraceWriter
	now func() time.Time

	mu  sync.Mutex
	err error
}

// NewTraceMonitor creates a monitor writing to w.
func NewTraceMonitor(w TraceWriter) *TraceMonitor {
	return &TraceMonitor{w: w, now: time.Now}
}

func (m *TraceMonitor) Convergence(iteration int, residual, tolerance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return
	}
	err := m.w.Write(store.TraceEntry{
		Iteration: iteration,
		Residual:  residual,
		Tolerance: tolerance,
		Timestamp: m.now(),
	})
	if err != nil {
		slog.Warn("Trace write failed, dropping further entries", "iteration", iteration, "error", err)
		m.err = err
	}
}

func (m *TraceMonitor) Log(string) {}

// Err returns the first write error, if any.
func (m *TraceMonitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}
