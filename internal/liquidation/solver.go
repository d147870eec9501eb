// Package liquidation estimates the underlying price at which a short
// option position's maintenance margin exceeds its margin balance.
package liquidation

import (
	"errors"

	"github.com/rickgao/deribit-data/internal/options"
	"github.com/rickgao/deribit-data/internal/rootfind"
)

// ErrNoSolution is returned when the search ends on a non-finite price.
// Some positions cannot be liquidated under the model at all.
var ErrNoSolution = errors.New("liquidation price has no solution")

// Margin model constants (fractions of the underlying).
const (
	minMaintenanceMargin = 0.075
	markMarginRate       = 0.075
	initialBalance       = 0.1
)

// Search settings. The wiggle is absolute because prices are in currency
// units (tens of thousands for BTC).
const (
	initialGuessRatio = 0.75
	priceWiggle       = 10
	ratioTolerance    = 0.0001
)

// Position describes a short put sold at Params.S.
type Position struct {
	options.Params

	SellPrice       float64 // Executed option price, as a fraction of the underlying
	InvestmentRatio float64 // Portion of the margin that was invested
}

// Estimate is the outcome of Solve.
type Estimate struct {
	Price      float64
	Iterations int
	Converged  bool // false means Price is the last iterate, not a verified root
}

// ShortPutLiquidationPrice returns the underlying price at which a short put
// sold at s gets liquidated.
func ShortPutLiquidationPrice(s, k, t, sigma, r, sellPrice, investmentRatio float64) (float64, error) {
	est, err := Solve(Position{
		Params:          options.Params{S: s, K: k, T: t, Sigma: sigma, R: r},
		SellPrice:       sellPrice,
		InvestmentRatio: investmentRatio,
	})
	if err != nil {
		return 0, err
	}
	return est.Price, nil
}

// Solve searches for the price where MarginRatio crosses zero, starting
// below the sale price since a short put is liquidated on a drop.
func Solve(pos Position) (Estimate, error) {
	res := rootfind.FindRoot(
		pos.MarginRatio,
		pos.S*initialGuessRatio,
		rootfind.WithWiggle(priceWiggle),
		rootfind.WithTolerance(ratioTolerance),
	)
	if !res.Finite() {
		return Estimate{}, ErrNoSolution
	}

	return Estimate{
		Price:      res.Root,
		Iterations: res.Iterations,
		Converged:  res.Converged,
	}, nil
}

// MarginRatio returns maintenance margin / margin balance − 1 with the put
// repriced at currentS. Zero marks the liquidation threshold.
func (pos Position) MarginRatio(currentS float64) float64 {
	origMark := options.Put(pos.Params) / pos.S
	mark := options.Put(pos.WithSpot(currentS)) / currentS

	maintenance := pos.InvestmentRatio * (max(minMaintenanceMargin, markMarginRate*mark) + mark)
	pnl := origMark - mark
	balance := initialBalance + (pos.SellPrice+pnl)*pos.InvestmentRatio

	return maintenance/balance - 1
}
