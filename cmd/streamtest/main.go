// streamtest connects to Deribit and streams ticker attributes to console.
// Usage: go run ./cmd/streamtest --instruments BTC-PERPETUAL,ETH-PERPETUAL --attributes mark_price,greeks.delta
//
// Every instrument is observed through the shared subscription cache, so
// repeated instruments share one fetch cycle.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/deribit-data/internal/api"
	"github.com/rickgao/deribit-data/internal/config"
	"github.com/rickgao/deribit-data/internal/connection"
	"github.com/rickgao/deribit-data/internal/rpc"
	"github.com/rickgao/deribit-data/internal/subscription"
)

func main() {
	wsURL := flag.String("url", config.DefaultWSURL, "Deribit WebSocket URL")
	instruments := flag.String("instruments", "BTC-PERPETUAL", "comma-separated instrument names")
	attributes := flag.String("attributes", "mark_price,index_price,mark_iv", "comma-separated ticker attributes (dotted paths allowed)")
	interval := flag.Duration("interval", 2*time.Second, "poll interval, <= 0 fetches once")
	verbose := flag.Bool("verbose", false, "print full ticker JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	attrs := api.AttributesFromString(*attributes)
	if attrs.Len() == 0 {
		logger.Error("no attributes given")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	connCfg := connection.DefaultClientConfig()
	connCfg.URL = *wsURL
	conn := connection.NewClient(connCfg, logger)

	logger.Info("connecting", "url", connCfg.URL)
	if err := conn.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	correlator := rpc.NewCorrelator(conn, logger)
	go func() {
		if err := correlator.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("dispatch loop stopped", "error", err)
			cancel()
		}
	}()

	apiClient := api.NewClient(correlator, api.WithLogger(logger), api.WithRateLimit(config.DefaultRateLimit, config.DefaultRateBurst))

	cache := subscription.New[json.RawMessage](subscription.DefaultConfig(), logger)
	defer cache.Close()

	done := make(chan struct{})
	names := api.AttributesFromString(*instruments).Names
	for _, name := range names {
		key := subscription.Key("GetTickerRaw", name, attrs.String(), *interval)
		feed, err := cache.Observe(ctx, key, *interval, func(ctx context.Context) (json.RawMessage, error) {
			return apiClient.GetTickerRaw(ctx, name)
		})
		if err != nil {
			logger.Error("failed to observe", "instrument", name, "error", err)
			os.Exit(1)
		}
		go func() {
			printTicker(feed, name, attrs, *verbose)
			done <- struct{}{}
		}()
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("stats",
					"connected", conn.IsConnected(),
					"pending_calls", correlator.Pending(),
					"feeds", cache.Len(),
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "instruments", len(names))

	// Every feed ends on its own for one-shots, or when ctx ends.
	for range names {
		<-done
	}
	logger.Info("shutdown complete")
}

func printTicker(feed *subscription.Feed[json.RawMessage], name string, attrs api.AttributeList, verbose bool) {
	defer feed.Close()

	for u := range feed.C() {
		if u.Err != nil {
			fmt.Printf("[TICKER] instrument=%s seq=%d error=%v\n", name, u.Seq, u.Err)
			continue
		}

		if verbose {
			var pretty map[string]any
			if err := json.Unmarshal(u.Value, &pretty); err == nil {
				data, _ := json.MarshalIndent(pretty, "", "  ")
				fmt.Printf("[TICKER] %s\n", data)
			}
			continue
		}

		values, err := api.SelectAttributes(u.Value, attrs)
		if err != nil {
			fmt.Printf("[TICKER] instrument=%s seq=%d error=%v\n", name, u.Seq, err)
			continue
		}
		pairs := make([]string, len(values))
		for i, v := range values {
			pairs[i] = fmt.Sprintf("%s=%v", attrs.Names[i], v)
		}
		fmt.Printf("[TICKER] instrument=%s seq=%d %s\n", name, u.Seq, strings.Join(pairs, " "))
	}
}
