package main

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/cwbudde/fieldmin/internal/config"
	"github.com/cwbudde/fieldmin/internal/field"
	"github.com/cwbudde/fieldmin/internal/opt"
	"github.com/cwbudde/fieldmin/internal/problem"
	"github.com/cwbudde/fieldmin/internal/store"
	"github.com/cwbudde/fieldmin/internal/telemetry"
)

const (
	// rotationOrder is the matrix order of the rotation problem.
	rotationOrder = 3

	// rotationSpread is the standard deviation of the so(3) generators of
	// random targets and starts, keeping rotation angles well below π.
	rotationSpread = 0.5
)

// startPoint selects where a session begins. With neither field set the
// run starts from cfg.Start (or the warm start) for flat problems and from
// the identity for the rotation problem.
type startPoint struct {
	resume *store.PointSnapshot
	random *rand.Rand
}

// session is one optimization run writing its trace and checkpoint.
type session struct {
	cfg     config.RunConfig
	runID   string
	store   store.Store
	timings *telemetry.Timings

	// appendTrace continues an existing trace instead of replacing it.
	appendTrace bool

	// priorIterations is added to the iteration count of the checkpoint.
	priorIterations int
}

func (s *session) execute(start startPoint) (*store.Checkpoint, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	tw, err := store.NewTraceWriter(s.store.BaseDir(), s.runID, s.appendTrace)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}

	history := telemetry.NewHistory()
	trace := telemetry.NewTraceMonitor(tw)
	monitor := telemetry.Multi(
		opt.SlogMonitor{Logger: slog.Default().With("run_id", s.runID)},
		trace,
		history,
	)

	var (
		converged bool
		value     float64
		point     store.PointSnapshot
	)
	if s.cfg.Problem == problem.NameRotation {
		converged, value, point, err = s.runRotation(start, monitor)
	} else {
		converged, value, point, err = s.runFlat(start, monitor)
	}
	if cerr := tw.Close(); cerr != nil {
		slog.Warn("Failed to close trace", "run_id", s.runID, "error", cerr)
	}
	if err != nil {
		return nil, err
	}

	var residual float64
	if last, ok := history.Last(); ok {
		residual = last.Residual
	}
	cp := store.NewCheckpoint(s.runID, point, residual, value, s.priorIterations+history.Len(), converged, s.cfg)
	if err := s.store.SaveCheckpoint(s.runID, cp); err != nil {
		return nil, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Info("Run complete",
		"run_id", s.runID,
		"problem", s.cfg.Problem,
		"converged", converged,
		"iterations", history.Len(),
		"residual", residual,
		"value", value,
		"trace_errors", trace.Err() != nil,
	)
	return cp, nil
}

func (s *session) runFlat(start startPoint, monitor opt.Monitor) (bool, float64, store.PointSnapshot, error) {
	p, err := problem.Lookup(s.cfg.Problem, s.cfg.Dim)
	if err != nil {
		return false, 0, store.PointSnapshot{}, err
	}

	x, err := s.flatStart(p, start)
	if err != nil {
		return false, 0, store.PointSnapshot{}, err
	}

	converged, value, err := descend(s.cfg, field.Additive{}, p, x, s.runID, monitor, s.timings)
	if err != nil {
		return false, 0, store.PointSnapshot{}, err
	}
	return converged, value, store.PointSnapshot{
		Kind:       store.KindVector,
		Sites:      x.Sites(),
		Components: x.Components(),
		Values:     append([]float64{}, x.Values()...),
	}, nil
}

func (s *session) flatStart(p problem.Flat, start startPoint) (*field.Vector, error) {
	dim := s.cfg.Dim

	switch {
	case start.resume != nil:
		if start.resume.Kind != store.KindVector {
			return nil, fmt.Errorf("checkpoint holds a %s point, %s needs a vector", start.resume.Kind, p.Name)
		}
		return field.VectorFrom(start.resume.Values, start.resume.Components)

	case start.random != nil:
		values := make([]float64, dim)
		for i := range values {
			values[i] = s.cfg.Start * (2*start.random.Float64() - 1)
		}
		return field.VectorFrom(values, 1)

	case s.cfg.WarmStart.Enabled:
		ws := s.cfg.WarmStart
		lower := make([]float64, dim)
		upper := make([]float64, dim)
		for i := range lower {
			lower[i], upper[i] = -ws.Bound, ws.Bound
		}
		stop := s.timings.Start(s.runID + "/warm-start")
		best, cost, err := opt.NewMayfly(ws.Iterations, ws.Population, ws.Seed).Search(problem.Objective(p), lower, upper)
		stop()
		if err != nil {
			return nil, fmt.Errorf("warm start failed: %w", err)
		}
		slog.Info("Warm start selected starting point", "run_id", s.runID, "cost", cost)
		return field.VectorFrom(best, 1)

	default:
		x := field.NewVector(dim, 1)
		for i := range x.Values() {
			x.Values()[i] = s.cfg.Start
		}
		return x, nil
	}
}

func (s *session) runRotation(start startPoint, monitor opt.Monitor) (bool, float64, store.PointSnapshot, error) {
	if s.cfg.WarmStart.Enabled {
		slog.Warn("Warm start only applies to flat problems, ignoring", "run_id", s.runID, "problem", s.cfg.Problem)
	}

	target := field.RandomRotations(s.cfg.Sites, rotationOrder, rotationSpread, rand.New(rand.NewSource(s.cfg.Seed)))
	p := problem.RotationAlignment(target)

	var x *field.Matrices
	switch {
	case start.resume != nil:
		if start.resume.Kind != store.KindMatrices {
			return false, 0, store.PointSnapshot{}, fmt.Errorf("checkpoint holds a %s point, %s needs matrices", start.resume.Kind, p.Name)
		}
		m, err := field.MatricesFrom(start.resume.Values, rotationOrder)
		if err != nil {
			return false, 0, store.PointSnapshot{}, err
		}
		x = m
	case start.random != nil:
		x = field.RandomRotations(s.cfg.Sites, rotationOrder, rotationSpread, start.random)
	default:
		x = field.NewMatrices(s.cfg.Sites, rotationOrder)
	}

	converged, _, err := descend(s.cfg, field.SpecialOrthogonal{}, p, x, s.runID, monitor, s.timings)
	if err != nil {
		return false, 0, store.PointSnapshot{}, err
	}
	// the stored value must belong to the stored, reunitarized point
	if err := x.Reunitarize(); err != nil {
		return false, 0, store.PointSnapshot{}, err
	}
	value, err := p.Value(x)
	if err != nil {
		return false, 0, store.PointSnapshot{}, err
	}
	return converged, value, store.PointSnapshot{
		Kind:       store.KindMatrices,
		Sites:      x.Sites(),
		Components: x.Components(),
		Values:     x.Values(),
	}, nil
}

// descend runs gradient descent on x in place and returns the convergence
// flag and the functional at the final iterate.
func descend[F field.Point[F]](cfg config.RunConfig, group field.Group[F], p problem.Problem[F], x F, label string, monitor opt.Monitor, timer opt.Timer) (bool, float64, error) {
	gd, err := opt.NewGradientDescent[F](cfg.Optimizer(), group,
		opt.WithMonitor[F](monitor),
		opt.WithTimer[F](timer),
	)
	if err != nil {
		return false, 0, err
	}

	converged, err := gd.Build(p.Value, p.Grad).Run(x, label)
	if err != nil {
		return false, 0, fmt.Errorf("run %s: %w", label, err)
	}

	value, err := p.Value(x)
	if err != nil {
		return false, 0, err
	}
	return converged, value, nil
}
