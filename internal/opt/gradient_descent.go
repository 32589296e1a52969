package opt

import (
	"fmt"
	"math"

	"github.com/cwbudde/fieldmin/internal/field"
)

// Functional evaluates the objective at a point.
type Functional[F any] func(x F) (float64, error)

// Gradient evaluates the gradient of the objective at a point. The result
// has the same shape as x and is owned by the caller.
type Gradient[F any] func(x F) (F, error)

// GradientDescent performs steepest descent on a group-valued field:
//
//	x ← compose(-step · c · df(x), x)
//
// where c is 1 unless line search is enabled. It stops once the
// per-degree-of-freedom RMS gradient drops to Eps or the iteration budget
// runs out.
type GradientDescent[F field.Point[F]] struct {
	cfg      Config
	group    field.Group[F]
	searcher LineSearcher[F]
	monitor  Monitor
	timer    Timer
}

// Option configures the collaborators of a GradientDescent.
type Option[F field.Point[F]] func(*GradientDescent[F])

// WithLineSearch sets the line searcher used when Config.LineSearch is on.
func WithLineSearch[F field.Point[F]](ls LineSearcher[F]) Option[F] {
	return func(g *GradientDescent[F]) { g.searcher = ls }
}

// WithMonitor sets the telemetry sink.
func WithMonitor[F field.Point[F]](m Monitor) Option[F] {
	return func(g *GradientDescent[F]) { g.monitor = m }
}

// WithTimer sets the timing collaborator wrapping each run.
func WithTimer[F field.Point[F]](t Timer) Option[F] {
	return func(g *GradientDescent[F]) { g.timer = t }
}

// NewGradientDescent validates cfg and returns an optimizer over the given
// group. Invalid parameters yield a *ConfigError.
func NewGradientDescent[F field.Point[F]](cfg Config, group field.Group[F], opts ...Option[F]) (*GradientDescent[F], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if group == nil {
		return nil, &ConfigError{Field: "group", Reason: "cannot be nil"}
	}

	g := &GradientDescent[F]{
		cfg:   cfg,
		group: group,
	}
	for _, o := range opts {
		o(g)
	}

	if g.searcher == nil && cfg.LineSearch {
		g.searcher = &QuadraticLineSearch[F]{Group: group}
	}
	if g.monitor == nil {
		g.monitor = SlogMonitor{}
	}
	if g.timer == nil {
		g.timer = nopTimer{}
	}
	return g, nil
}

// Config returns the parameters the optimizer was built with.
func (g *GradientDescent[F]) Config() Config {
	return g.cfg
}

// Build binds a functional and its gradient.
func (g *GradientDescent[F]) Build(f Functional[F], df Gradient[F]) *Procedure[F] {
	return &Procedure[F]{gd: g, f: f, df: df}
}

// Procedure is a gradient descent bound to one functional. It holds no
// state of its own between runs.
type Procedure[F field.Point[F]] struct {
	gd *GradientDescent[F]
	f  Functional[F]
	df Gradient[F]
}

// Run minimizes starting at x, updating x in place on every iteration. It
// returns true once the residual reaches the tolerance and false when the
// iteration budget is exhausted; x holds the last iterate either way.
// Errors from the functional, gradient, group or line search are returned
// as-is and abort the run. label only attributes timing.
func (p *Procedure[F]) Run(x F, label string) (bool, error) {
	defer p.gd.timer.Start(label)()

	cfg := p.gd.cfg
	var (
		rs   float64
		last int
	)
	for i := 0; i < cfg.MaxIter; i++ {
		last = i

		d, err := p.df(x)
		if err != nil {
			return false, err
		}

		c := 1.0
		if cfg.LineSearch {
			c, err = p.gd.searcher.Search(d, x, d, p.df, -cfg.Step)
			if err != nil {
				return false, err
			}
		}

		next, err := p.gd.group.Compose(d.Scale(-cfg.Step*c), x)
		if err != nil {
			return false, err
		}
		x.Assign(next)

		rs = Residual(d)
		p.gd.monitor.Convergence(i, rs, cfg.Eps)

		if i%cfg.LogFunctionalEvery == 0 {
			v, err := p.f(x)
			if err != nil {
				return false, err
			}
			if cfg.LineSearch {
				p.gd.monitor.Log(fmt.Sprintf("iteration %d: f(x) = %.15e, |df|/sqrt(dof) = %e, step_optimal = %g", i, v, rs, c*cfg.Step))
			} else {
				p.gd.monitor.Log(fmt.Sprintf("iteration %d: f(x) = %.15e, |df|/sqrt(dof) = %e", i, v, rs))
			}
		}

		if rs <= cfg.Eps {
			v, err := p.f(x)
			if err != nil {
				return false, err
			}
			p.gd.monitor.Log(fmt.Sprintf("converged in %d iterations: f(x) = %.15e, |df|/sqrt(dof) = %e", i+1, v, rs))
			return true, nil
		}
	}

	p.gd.monitor.Log(fmt.Sprintf("NOT converged in %d iterations;  |df|/sqrt(dof) = %e / %e", last+1, rs, cfg.Eps))
	return false, nil
}

// Residual is the RMS gradient magnitude per real degree of freedom,
// sqrt(|d|² / (sites · components)). A field without degrees of freedom
// has residual 0.
func Residual(d field.Field) float64 {
	dof := d.Sites() * d.Components()
	if dof == 0 {
		return 0
	}
	return math.Sqrt(d.Norm2() / float64(dof))
}
