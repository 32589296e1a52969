package telemetry

import "github.com/cwbudde/fieldmin/internal/opt"

type multi []opt.Monitor

// Multi returns a monitor that forwards every call to all monitors in
// order. Nil monitors are skipped.
func Multi(monitors ...opt.Monitor) opt.Monitor {
	out := make(multi, 0, len(monitors))
	for _, m := range monitors {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

func (ms multi) Convergence(iteration int, residual, tolerance float64) {
	for _, m := range ms {
		m.Convergence(iteration, residual, tolerance)
	}
}

func (ms multi) Log(msg string) {
	for _, m := range ms {
		m.Log(msg)
	}
}
