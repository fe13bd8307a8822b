package markovchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"
)

// Default tunables for FindStationaryDistribution, matching spec.md §4.4.
const (
	DefaultMaxIterations        = 255
	DefaultConvergenceThreshold = 1e-7
	DefaultYieldAfter           = 30 * time.Millisecond
)

// Scheduler abstracts the host's cooperative-yield primitive so the
// solver can suspend between iterations without hard-coding a
// thread-sleep. A single-threaded event-loop host would implement Yield
// as a scheduled-task hop; on Go's preemptible goroutine scheduler,
// runtime.Gosched is the equivalent "let other work run" hint.
type Scheduler interface {
	Now() time.Time
	Yield()
}

// goschedClock is the default Scheduler: wall-clock time via time.Now,
// yielding via runtime.Gosched.
type goschedClock struct{}

func (goschedClock) Now() time.Time { return time.Now() }
func (goschedClock) Yield()         { runtime.Gosched() }

// Options configures FindStationaryDistribution. The zero value is not
// directly usable; construct via DefaultOptions and override fields.
type Options struct {
	// MaxIterations caps the number of power-iteration steps.
	MaxIterations int
	// ConvergenceThreshold is the sup-norm delta below which two
	// successive distributions are considered converged.
	ConvergenceThreshold float64
	// YieldAfter is the wall-clock budget between cooperative yields.
	YieldAfter time.Duration
	// Verbose, when true and Logger is non-nil, emits one debug record
	// per iteration.
	Verbose bool
	// Logger receives verbose diagnostics; nil disables logging entirely,
	// including the cost of formatting it.
	Logger *slog.Logger
	// Scheduler overrides the host suspension primitive. Nil selects the
	// default goroutine-yielding implementation.
	Scheduler Scheduler
}

// DefaultOptions returns the spec-mandated defaults.
func DefaultOptions() Options {
	return Options{
		MaxIterations:        DefaultMaxIterations,
		ConvergenceThreshold: DefaultConvergenceThreshold,
		YieldAfter:           DefaultYieldAfter,
	}
}

func (o Options) resolve() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.ConvergenceThreshold <= 0 {
		o.ConvergenceThreshold = DefaultConvergenceThreshold
	}
	if o.YieldAfter < 0 {
		o.YieldAfter = DefaultYieldAfter
	}
	if o.Scheduler == nil {
		o.Scheduler = goschedClock{}
	}
	return o
}

// ErrNotRowStochastic wraps a *RowStochasticityError returned by the
// input chain's own validation; the solver fails immediately rather than
// iterating on an operator that cannot converge to a meaningful
// distribution.
var ErrNotRowStochastic = errors.New("markovchain: chain is not row-stochastic")

// Result is the outcome of FindStationaryDistribution.
type Result struct {
	// Pi is the final distribution, whether or not it converged.
	Pi []float64
	// Converged is true iff the sup-norm delta dropped below
	// ConvergenceThreshold before MaxIterations was exhausted.
	Converged bool
	// Iterations is the number of power-iteration steps actually taken.
	Iterations int
}

// FindStationaryDistribution iterates chain.Iterate starting from pi0
// until either the maximum element-wise absolute difference between
// successive distributions drops below opts.ConvergenceThreshold
// (converged) or opts.MaxIterations is reached (not converged, which is
// reported as a status, not an error).
//
// The solver always calls chain.Iterate with alpha=0; the seed argument
// is still threaded through so a future caller reusing Chain for
// teleporting PageRank can pass a non-zero alpha without a type change.
//
// Concurrency contract: between iterations, once opts.YieldAfter has
// elapsed since the previous suspension, the solver calls
// opts.Scheduler.Yield() before resuming, so it never starves a
// cooperative host. ctx is checked once per iteration for cancellation;
// FindStationaryDistribution does not retry and has no timeout of its
// own beyond what ctx supplies.
func FindStationaryDistribution(ctx context.Context, chain *Chain, pi0 []float64, seed []float64, opts Options) (Result, error) {
	if err := chain.ValidateStochastic(); err != nil {
		var rse *RowStochasticityError
		if errors.As(err, &rse) {
			return Result{}, fmt.Errorf("%w: %w", ErrNotRowStochastic, rse)
		}
		return Result{}, fmt.Errorf("%w: %v", ErrNotRowStochastic, err)
	}

	opts = opts.resolve()

	pi := pi0
	lastYield := opts.Scheduler.Now()
	converged := false
	iterations := 0

	for iterations = 0; iterations < opts.MaxIterations; iterations++ {
		if err := ctx.Err(); err != nil {
			return Result{Pi: pi, Converged: false, Iterations: iterations}, err
		}

		next := chain.Iterate(pi, 0, seed)
		delta := supNormDiff(next, pi)

		if opts.Logger != nil && opts.Verbose {
			opts.Logger.Debug("power iteration step", "iteration", iterations, "delta", delta)
		}

		pi = next
		if delta < opts.ConvergenceThreshold {
			converged = true
			iterations++
			break
		}

		if now := opts.Scheduler.Now(); now.Sub(lastYield) >= opts.YieldAfter {
			opts.Scheduler.Yield()
			lastYield = now
		}
	}

	return Result{Pi: pi, Converged: converged, Iterations: iterations}, nil
}

func supNormDiff(a, b []float64) float64 {
	var max float64
	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > max {
			max = d
		}
	}
	return max
}
