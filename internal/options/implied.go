package options

import "github.com/rickgao/deribit-data/internal/rootfind"

// Starting guess for implied volatility searches.
const impliedVolGuess = 0.5

// CallImpliedVolatility solves Call(S,K,T,σ,r) = price for σ.
//
// The search runs on σ unconstrained; callers must check the result is a
// positive finite number. Converged is false when the tolerance was not met.
func CallImpliedVolatility(s, k, t, r, price float64) rootfind.Result {
	return impliedVolatility(KindCall, Params{S: s, K: k, T: t, R: r}, price)
}

// PutImpliedVolatility solves Put(S,K,T,σ,r) = price for σ.
func PutImpliedVolatility(s, k, t, r, price float64) rootfind.Result {
	return impliedVolatility(KindPut, Params{S: s, K: k, T: t, R: r}, price)
}

// ImpliedVolatility dispatches on kind.
func ImpliedVolatility(kind Kind, s, k, t, r, price float64) rootfind.Result {
	return impliedVolatility(kind, Params{S: s, K: k, T: t, R: r}, price)
}

func impliedVolatility(kind Kind, p Params, price float64) rootfind.Result {
	f := func(sigma float64) float64 {
		return Price(kind, p.WithSigma(sigma)) - price
	}
	return rootfind.FindRoot(f, impliedVolGuess)
}
