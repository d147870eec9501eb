// deribitd records Deribit tickers and index prices and serves status.
// Usage: go run ./cmd/deribitd --config configs/deribitd.example.yaml
//
// Without --config every default applies and no feeds are recorded.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/deribit-data/internal/api"
	"github.com/rickgao/deribit-data/internal/config"
	"github.com/rickgao/deribit-data/internal/connection"
	"github.com/rickgao/deribit-data/internal/database"
	"github.com/rickgao/deribit-data/internal/model"
	"github.com/rickgao/deribit-data/internal/recorder"
	"github.com/rickgao/deribit-data/internal/rpc"
	"github.com/rickgao/deribit-data/internal/server"
	"github.com/rickgao/deribit-data/internal/subscription"
	"github.com/rickgao/deribit-data/internal/version"
	"github.com/rickgao/deribit-data/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadAndValidate(*configPath)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting deribitd",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"ws_url", cfg.API.WSURL,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("deribitd failed", "error", err)
		os.Exit(1)
	}
	logger.Info("deribitd stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Transport
	conn := connection.NewClient(connection.ClientConfig{
		URL:              cfg.API.WSURL,
		HandshakeTimeout: cfg.API.HandshakeTimeout,
		PingInterval:     cfg.API.PingInterval,
		PingTimeout:      cfg.API.PingTimeout,
		WriteTimeout:     cfg.API.WriteTimeout,
		BufferSize:       cfg.API.BufferSize,
	}, logger)
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	defer conn.Close()

	correlator := rpc.NewCorrelator(conn, logger)
	apiClient := api.NewClient(correlator,
		api.WithLogger(logger),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
		api.WithCallTimeout(cfg.API.CallTimeout),
	)

	cacheCfg := subscription.Config{
		SubscriberBuffer: cfg.Feeds.SubscriberBuffer,
		FetchTimeout:     cfg.Feeds.FetchTimeout,
	}
	tickers := subscription.New[model.Ticker](cacheCfg, logger)
	defer tickers.Close()
	indices := subscription.New[model.IndexPrice](cacheCfg, logger)
	defer indices.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return correlator.Run(gctx) })

	srv := server.New(server.Config{
		Port:        cfg.Server.Port,
		MetricsPath: cfg.Server.MetricsPath,
	}, server.Deps{
		Transport: conn,
		Pending:   correlator,
		Feeds: map[string]server.FeedLister{
			"tickers": tickers,
			"indices": indices,
		},
	}, logger)
	g.Go(func() error { return srv.Run(gctx) })

	describeInstruments(gctx, apiClient, cfg.Feeds.Tickers, logger)

	// Optional snapshot sink
	var handler recorder.TickerHandler
	var tickerWriter *writer.TickerWriter
	if cfg.Database.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Database.Timescale.Host,
			"port", cfg.Database.Timescale.Port,
			"database", cfg.Database.Timescale.Name,
		)
		pool, err := database.Connect(gctx, cfg.Database.Timescale, cfg.Instance.ID)
		if err != nil {
			cancel()
			g.Wait()
			return err
		}
		defer pool.Close()

		if err := database.EnsureSchema(gctx, pool); err != nil {
			cancel()
			g.Wait()
			return err
		}

		tickerWriter = writer.NewTickerWriter(writer.WriterConfig{
			BatchSize:     cfg.Writers.BatchSize,
			FlushInterval: cfg.Writers.FlushInterval,
			BufferSize:    cfg.Writers.BufferSize,
		}, pool, logger)
		if err := tickerWriter.Start(gctx); err != nil {
			cancel()
			g.Wait()
			return err
		}
		handler = recorder.WriterHandler(tickerWriter)
	}

	rec := recorder.New(recorderConfig(cfg.Feeds), apiClient, tickers, indices, handler, logger)
	if err := rec.Start(gctx); err != nil {
		cancel()
		g.Wait()
		return err
	}

	logger.Info("deribitd running", "status_port", cfg.Server.Port)

	<-gctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := rec.Stop(shutdownCtx); err != nil {
		logger.Warn("recorder stop", "error", err)
	}
	if tickerWriter != nil {
		if err := tickerWriter.Stop(shutdownCtx); err != nil {
			logger.Warn("writer stop", "error", err)
		}
	}

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// describeInstruments warms the instrument cache for configured tickers.
func describeInstruments(ctx context.Context, c *api.Client, feeds []config.TickerFeed, logger *slog.Logger) {
	for _, f := range feeds {
		inst, err := c.Instrument(ctx, f.Instrument)
		if err != nil {
			logger.Warn("instrument lookup failed", "instrument", f.Instrument, "error", err)
			continue
		}
		logger.Info("instrument",
			"name", inst.Name,
			"kind", inst.Kind,
			"option_type", inst.OptionType,
			"strike", inst.Strike.String(),
			"expires", time.UnixMicro(inst.ExpirationTS).UTC(),
		)
	}
}

func recorderConfig(feeds config.FeedsConfig) recorder.Config {
	var out recorder.Config
	for _, f := range feeds.Tickers {
		out.Tickers = append(out.Tickers, recorder.TickerFeed{Instrument: f.Instrument, Interval: f.Interval})
	}
	for _, f := range feeds.Indices {
		out.Indices = append(out.Indices, recorder.IndexFeed{IndexName: f.IndexName, Interval: f.Interval})
	}
	return out
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
