// Package rootfind implements a derivative-free pseudo-Newton root finder.
//
// The finder is local and best-effort: it steps x -= f(x)/f'(x) with f'
// estimated by a forward difference and returns early once |f(x)| is below
// the tolerance. It can diverge or oscillate when the local derivative is
// small or zero; Result.Converged reports whether the tolerance was met.
package rootfind

import "math"

// Defaults used when no option overrides them.
const (
	DefaultWiggle        = 0.01
	DefaultTolerance     = 0.001
	DefaultMaxIterations = 20
)

// Func is a scalar function of one real argument.
type Func func(x float64) float64

// Result is the outcome of FindRoot.
type Result struct {
	Root       float64 // Last iterate (the root when Converged)
	Iterations int     // Newton steps taken
	Converged  bool    // |f(Root)| < tolerance was observed
}

// Finite reports whether the root is a usable number.
func (r Result) Finite() bool {
	return !math.IsNaN(r.Root) && !math.IsInf(r.Root, 0)
}

type settings struct {
	wiggle        float64
	tolerance     float64
	maxIterations int
}

// Option configures FindRoot.
type Option func(*settings)

// WithWiggle sets the absolute step used for the forward-difference derivative.
func WithWiggle(w float64) Option {
	return func(s *settings) {
		s.wiggle = w
	}
}

// WithTolerance sets the |f(x)| threshold for early return.
func WithTolerance(tol float64) Option {
	return func(s *settings) {
		s.tolerance = tol
	}
}

// WithMaxIterations bounds the number of Newton steps.
func WithMaxIterations(n int) Option {
	return func(s *settings) {
		s.maxIterations = n
	}
}

// FindRoot searches for x with f(x) ≈ 0 starting at x0.
//
// When the iteration budget runs out the last iterate is returned with
// Converged=false; it may be NaN or ±Inf if a step divided by a zero slope.
func FindRoot(f Func, x0 float64, opts ...Option) Result {
	s := settings{
		wiggle:        DefaultWiggle,
		tolerance:     DefaultTolerance,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(&s)
	}

	x := x0
	for i := 0; i < s.maxIterations; i++ {
		fx := f(x)
		if math.Abs(fx) < s.tolerance {
			return Result{Root: x, Iterations: i, Converged: true}
		}

		dfx := (f(x+s.wiggle) - fx) / s.wiggle
		x -= fx / dfx
	}

	return Result{Root: x, Iterations: s.maxIterations}
}
