// greeks prices options, solves implied volatility and liquidation
// prices, and prints implied volatility history.
//
// Usage:
//
//	greeks price       -kind call -s 4400 -k 2300 -t 0.25 -sigma 0.8 -r 0.02
//	greeks iv          -kind put -s 370 -k 500 -t 0.25 -r 0.01 -price 129.5
//	greeks liquidation -s 50000 -k 45000 -t 0.25 -sigma 0.8 -r 0.02 -sell 0.05 -ratio 1
//	greeks history     -currency BTC
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rickgao/deribit-data/internal/config"
	"github.com/rickgao/deribit-data/internal/ivhistory"
	"github.com/rickgao/deribit-data/internal/liquidation"
	"github.com/rickgao/deribit-data/internal/options"
)

var errUsage = errors.New("usage: greeks <price|iv|liquidation|history> [flags]")

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(ctx context.Context, args []string, out io.Writer, logger *slog.Logger) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "price":
		return runPrice(args[1:], out)
	case "iv":
		return runImplied(args[1:], out)
	case "liquidation":
		return runLiquidation(args[1:], out)
	case "history":
		return runHistory(ctx, args[1:], out, logger)
	default:
		return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
	}
}

// modelFlags registers the Black-Scholes inputs of the pricing commands.
func modelFlags(fs *flag.FlagSet, p *options.Params, withSigma bool) {
	fs.Float64Var(&p.S, "s", 0, "underlying price")
	fs.Float64Var(&p.K, "k", 0, "strike")
	fs.Float64Var(&p.T, "t", 0, "time to expiry in years")
	fs.Float64Var(&p.R, "r", 0, "risk-free rate")
	if withSigma {
		fs.Float64Var(&p.Sigma, "sigma", 0, "volatility as a fraction")
	}
}

func parseKind(s string) (options.Kind, error) {
	k, ok := options.ParseKind(s)
	if !ok {
		return k, fmt.Errorf("kind must be call or put, got %q", s)
	}
	return k, nil
}

func runPrice(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	fs.SetOutput(out)
	var p options.Params
	modelFlags(fs, &p, true)
	kindFlag := fs.String("kind", "call", "call or put")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := parseKind(*kindFlag)
	if err != nil {
		return err
	}

	g := options.GreeksFor(kind, p)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%.6f\n", kind, options.Price(kind, p))
	fmt.Fprintf(tw, "delta\t%.6f\n", g.Delta)
	fmt.Fprintf(tw, "gamma\t%.8f\n", g.Gamma)
	fmt.Fprintf(tw, "theta\t%.6f\n", g.Theta)
	fmt.Fprintf(tw, "vega\t%.6f\n", g.Vega)
	fmt.Fprintf(tw, "vomma\t%.6f\n", g.Vomma)
	fmt.Fprintf(tw, "rho\t%.6f\n", g.Rho)
	return tw.Flush()
}

func runImplied(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("iv", flag.ContinueOnError)
	fs.SetOutput(out)
	var p options.Params
	modelFlags(fs, &p, false)
	kindFlag := fs.String("kind", "call", "call or put")
	price := fs.Float64("price", 0, "observed option price")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := parseKind(*kindFlag)
	if err != nil {
		return err
	}

	res := options.ImpliedVolatility(kind, p.S, p.K, p.T, p.R, *price)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "sigma\t%.6f\n", res.Root)
	fmt.Fprintf(tw, "iterations\t%d\n", res.Iterations)
	fmt.Fprintf(tw, "converged\t%t\n", res.Converged)
	return tw.Flush()
}

func runLiquidation(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("liquidation", flag.ContinueOnError)
	fs.SetOutput(out)
	var pos liquidation.Position
	modelFlags(fs, &pos.Params, true)
	fs.Float64Var(&pos.SellPrice, "sell", 0, "executed put price as a fraction of the underlying")
	fs.Float64Var(&pos.InvestmentRatio, "ratio", 1, "portion of the margin invested")
	if err := fs.Parse(args); err != nil {
		return err
	}

	est, err := liquidation.Solve(pos)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "liquidation_price\t%.2f\n", est.Price)
	fmt.Fprintf(tw, "iterations\t%d\n", est.Iterations)
	fmt.Fprintf(tw, "converged\t%t\n", est.Converged)
	return tw.Flush()
}

func runHistory(ctx context.Context, args []string, out io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(out)
	currency := fs.String("currency", "BTC", "currency, e.g. BTC or ETH")
	baseURL := fs.String("url", config.DefaultIVHistoryURL, "greeks.live API base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if logger == nil {
		logger = slog.Default()
	}
	client := ivhistory.NewClient(*baseURL, ivhistory.WithLogger(logger))
	points, err := client.GetIVHistory(ctx, *currency)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "time\t1m\t3m\t6m")
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			time.UnixMicro(p.CreatedTS).UTC().Format(time.RFC3339),
			p.Month1, p.Month3, p.Month6,
		)
	}
	return tw.Flush()
}
