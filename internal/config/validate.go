package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	u, err := url.Parse(c.API.WSURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("api.ws_url must be a ws:// or wss:// url, got %q", c.API.WSURL)
	}
	if c.API.PingTimeout <= c.API.PingInterval {
		return fmt.Errorf("api.ping_timeout (%s) must exceed api.ping_interval (%s)", c.API.PingTimeout, c.API.PingInterval)
	}
	if c.API.RateLimit < 0 {
		return errors.New("api.rate_limit must be >= 0")
	}
	if c.API.RateBurst < 1 {
		return errors.New("api.rate_burst must be >= 1")
	}

	if c.Feeds.SubscriberBuffer < 1 {
		return errors.New("feeds.subscriber_buffer must be >= 1")
	}
	for i, f := range c.Feeds.Tickers {
		if f.Instrument == "" {
			return fmt.Errorf("feeds.tickers[%d].instrument is required", i)
		}
		if f.Interval <= 0 {
			return fmt.Errorf("feeds.tickers[%d].interval must be > 0", i)
		}
	}
	for i, f := range c.Feeds.Indices {
		if f.IndexName == "" {
			return fmt.Errorf("feeds.indices[%d].index_name is required", i)
		}
		if f.Interval <= 0 {
			return fmt.Errorf("feeds.indices[%d].interval must be > 0", i)
		}
	}

	if c.Database.Enabled() {
		if err := c.Database.Timescale.validate("database.timescale"); err != nil {
			return err
		}
		if c.Writers.BatchSize < 1 {
			return errors.New("writers.batch_size must be >= 1")
		}
		if c.Writers.BufferSize < 1 {
			return errors.New("writers.buffer_size must be >= 1")
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.MetricsPath, "/") {
		return fmt.Errorf("server.metrics_path must start with /, got %q", c.Server.MetricsPath)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// SlogLevel returns the configured log level, or info when unparsable.
func (l LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
