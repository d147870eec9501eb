package rootfind

import (
	"math"
	"testing"
)

func TestFindRoot(t *testing.T) {
	square := func(x float64) float64 { return x*x - 4 }
	logX := func(x float64) float64 { return math.Log(x) }
	logistic := func(x float64) float64 { return 1.0/(1.0+math.Exp(-x+0.7)) - 0.5 }

	tests := []struct {
		name string
		f    Func
		x0   float64
		want float64
	}{
		{"x^2-4 from 0", square, 0, 2},
		{"x^2-4 from 1.9", square, 1.9, 2},
		{"x^2-4 from 8", square, 8, 2},
		{"x^2-4 from 13", square, 13, 2},
		{"ln from 0.1", logX, 0.1, 1},
		{"ln from 0.3", logX, 0.3, 1},
		{"ln from 1.4", logX, 1.4, 1},
		{"ln from 2", logX, 2, 1},
		{"logistic from 0.1", logistic, 0.1, 0.7},
		{"logistic from 0.6", logistic, 0.6, 0.7},
		{"logistic from 1.4", logistic, 1.4, 0.7},
		{"logistic from 2", logistic, 2, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FindRoot(tt.f, tt.x0, WithWiggle(0.01), WithTolerance(0.001))

			if !res.Converged {
				t.Fatalf("Converged = false after %d iterations, root %v", res.Iterations, res.Root)
			}
			if math.Abs(res.Root-tt.want) > 0.001 {
				t.Errorf("Root = %v, want %v ± 0.001", res.Root, tt.want)
			}
			if math.Abs(tt.f(res.Root)) >= 0.001 {
				t.Errorf("|f(Root)| = %v, want < 0.001", math.Abs(tt.f(res.Root)))
			}
		})
	}
}

func TestFindRoot_Defaults(t *testing.T) {
	res := FindRoot(func(x float64) float64 { return x - 3 }, 0)

	if !res.Converged {
		t.Fatal("expected convergence on a linear function")
	}
	if math.Abs(res.Root-3) > DefaultTolerance {
		t.Errorf("Root = %v, want 3", res.Root)
	}
}

func TestFindRoot_ReturnsImmediatelyAtRoot(t *testing.T) {
	calls := 0
	f := func(x float64) float64 {
		calls++
		return x - 5
	}

	res := FindRoot(f, 5)

	if res.Iterations != 0 || res.Root != 5 || !res.Converged {
		t.Errorf("got %+v, want root 5 after 0 iterations", res)
	}
	if calls != 1 {
		t.Errorf("f called %d times, want 1", calls)
	}
}

func TestFindRoot_FlatFunctionDoesNotConverge(t *testing.T) {
	res := FindRoot(func(float64) float64 { return 1 }, 0)

	if res.Converged {
		t.Error("expected Converged = false for a function without a root")
	}
	if res.Finite() {
		t.Errorf("Root = %v, want a non-finite value after a zero-slope step", res.Root)
	}
}

func TestFindRoot_IterationBudget(t *testing.T) {
	calls := 0
	f := func(x float64) float64 {
		calls++
		return math.Atan(x) // overshoots from far away
	}

	res := FindRoot(f, 10, WithMaxIterations(3))

	if res.Iterations != 3 {
		t.Errorf("Iterations = %d, want 3", res.Iterations)
	}
	if res.Converged {
		t.Error("expected Converged = false when the budget is exhausted")
	}
	if calls != 6 {
		t.Errorf("f called %d times, want 6 (value + difference per step)", calls)
	}
}
