// Package options prices European options with the Black-Scholes model.
//
// All functions are pure. Degenerate inputs (T=0, Sigma=0) are not special
// cased: the division by σ√T yields non-finite values that propagate to the
// caller unchanged.
package options

import "math"

// Params are the Black-Scholes inputs.
type Params struct {
	S     float64 // Underlying price (> 0)
	K     float64 // Strike (> 0)
	T     float64 // Time to expiry in years (>= 0)
	Sigma float64 // Annualized volatility (> 0)
	R     float64 // Risk-free rate
}

// WithSpot returns a copy of p priced at a different underlying.
func (p Params) WithSpot(s float64) Params {
	p.S = s
	return p
}

// WithSigma returns a copy of p with a different volatility.
func (p Params) WithSigma(sigma float64) Params {
	p.Sigma = sigma
	return p
}

// D1 returns d+ = (ln(S/K) + (r + σ²/2)·T) / (σ·√T).
func D1(p Params) float64 {
	return (math.Log(p.S/p.K) + (p.R+p.Sigma*p.Sigma/2)*p.T) / (p.Sigma * math.Sqrt(p.T))
}

// D2 returns d- = d+ − σ·√T.
func D2(p Params) float64 {
	return D1(p) - p.Sigma*math.Sqrt(p.T)
}

// Call prices a European call.
func Call(p Params) float64 {
	d1, d2 := D1(p), D2(p)
	return p.S*normCDF(d1) - p.K*discount(p)*normCDF(d2)
}

// Put prices a European put.
func Put(p Params) float64 {
	d1, d2 := D1(p), D2(p)
	return -p.S*normCDF(-d1) + p.K*discount(p)*normCDF(-d2)
}

// Price prices a call or a put depending on kind.
func Price(kind Kind, p Params) float64 {
	if kind == KindPut {
		return Put(p)
	}
	return Call(p)
}

// Kind selects the option right.
type Kind int

const (
	KindCall Kind = iota
	KindPut
)

func (k Kind) String() string {
	if k == KindPut {
		return "put"
	}
	return "call"
}

// ParseKind accepts "call"/"put" and the Deribit option_type / name suffixes "C"/"P".
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "call", "CALL", "Call", "c", "C":
		return KindCall, true
	case "put", "PUT", "Put", "p", "P":
		return KindPut, true
	}
	return KindCall, false
}

func discount(p Params) float64 {
	return math.Exp(-p.R * p.T)
}

// normCDF is the standard normal cumulative distribution Φ.
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normPDF is the standard normal density φ.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
