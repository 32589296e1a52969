package opt

import "log/slog"

// Monitor receives the telemetry of a run.
type Monitor interface {
	// Convergence records the residual of one iteration.
	Convergence(iteration int, residual, tolerance float64)

	// Log emits a free-form diagnostic line.
	Log(msg string)
}

// Timer attributes wall-clock time to a label. Start returns the function
// that stops the measurement.
type Timer interface {
	Start(label string) (stop func())
}

// SlogMonitor writes diagnostics to a slog.Logger. Convergence records go
// to the debug level, diagnostic lines to info.
type SlogMonitor struct {
	Logger *slog.Logger
}

func (m SlogMonitor) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

func (m SlogMonitor) Convergence(iteration int, residual, tolerance float64) {
	m.logger().Debug("Convergence",
		"iteration", iteration,
		"residual", residual,
		"tolerance", tolerance,
	)
}

func (m SlogMonitor) Log(msg string) {
	m.logger().Info(msg, "optimizer", "gradient_descent")
}

type nopTimer struct{}

func (nopTimer) Start(string) func() { return func() {} }
