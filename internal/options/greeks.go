package options

import "math"

// Reporting scales applied to the raw sensitivities.
const (
	daysPerYear = 365 // theta per calendar day
	pointScale  = 100 // vega per vol point, rho per 1% rate
)

// Greeks bundles the reported sensitivities of one option.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64 // per day
	Vega  float64 // per 1 vol point
	Vomma float64 // per 1 vol point
	Rho   float64 // per 1% rate
}

// CallDelta returns Φ(d+).
func CallDelta(p Params) float64 {
	return normCDF(D1(p))
}

// PutDelta returns −Φ(−d+).
func PutDelta(p Params) float64 {
	return -normCDF(-D1(p))
}

// Gamma is shared by calls and puts.
func Gamma(p Params) float64 {
	return normPDF(D1(p)) / (p.S * p.Sigma * math.Sqrt(p.T))
}

// CallTheta returns the call's time decay per day.
func CallTheta(p Params) float64 {
	return (decay(p) - p.R*p.K*discount(p)*normCDF(D2(p))) / daysPerYear
}

// PutTheta returns the put's time decay per day.
func PutTheta(p Params) float64 {
	return (decay(p) + p.R*p.K*discount(p)*normCDF(-D2(p))) / daysPerYear
}

// decay is the volatility part of annual theta, −S·φ(d+)·σ/(2√T).
func decay(p Params) float64 {
	return -p.S * normPDF(D1(p)) * p.Sigma / (2 * math.Sqrt(p.T))
}

// Vega returns the price change for a one point move in volatility.
func Vega(p Params) float64 {
	return rawVega(p) / pointScale
}

func rawVega(p Params) float64 {
	return p.S * normPDF(D1(p)) * math.Sqrt(p.T)
}

// Vomma returns the sensitivity of vega to volatility, per vol point.
func Vomma(p Params) float64 {
	return rawVega(p) * D1(p) * D2(p) / p.Sigma / pointScale
}

// CallRho returns the call's sensitivity to a 1% rate move.
func CallRho(p Params) float64 {
	return p.K * p.T * discount(p) * normCDF(D2(p)) / pointScale
}

// PutRho returns the put's sensitivity to a 1% rate move.
func PutRho(p Params) float64 {
	return -p.K * p.T * discount(p) * normCDF(-D2(p)) / pointScale
}

// CallGreeks computes every reported sensitivity of a call.
func CallGreeks(p Params) Greeks {
	return Greeks{
		Delta: CallDelta(p),
		Gamma: Gamma(p),
		Theta: CallTheta(p),
		Vega:  Vega(p),
		Vomma: Vomma(p),
		Rho:   CallRho(p),
	}
}

// PutGreeks computes every reported sensitivity of a put.
func PutGreeks(p Params) Greeks {
	return Greeks{
		Delta: PutDelta(p),
		Gamma: Gamma(p),
		Theta: PutTheta(p),
		Vega:  Vega(p),
		Vomma: Vomma(p),
		Rho:   PutRho(p),
	}
}

// GreeksFor dispatches on kind.
func GreeksFor(kind Kind, p Params) Greeks {
	if kind == KindPut {
		return PutGreeks(p)
	}
	return CallGreeks(p)
}
