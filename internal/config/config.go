package config

import "time"

// Config is the root configuration for a deribitd instance.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	API       APIConfig       `yaml:"api"`
	IVHistory IVHistoryConfig `yaml:"iv_history"`
	Feeds     FeedsConfig     `yaml:"feeds"`
	Database  DatabaseConfig  `yaml:"database"`
	Writers   WritersConfig   `yaml:"writers"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InstanceConfig identifies this process in logs and recorded rows.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds Deribit WebSocket settings.
type APIConfig struct {
	WSURL            string        `yaml:"ws_url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
	CallTimeout      time.Duration `yaml:"call_timeout"`
	RateLimit        float64       `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst        int           `yaml:"rate_burst"`
}

// IVHistoryConfig holds greeks.live settings.
type IVHistoryConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// FeedsConfig lists what the recorder observes.
type FeedsConfig struct {
	SubscriberBuffer int           `yaml:"subscriber_buffer"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	Tickers          []TickerFeed  `yaml:"tickers"`
	Indices          []IndexFeed   `yaml:"indices"`
}

// TickerFeed is one periodically polled instrument.
type TickerFeed struct {
	Instrument string        `yaml:"instrument"`
	Interval   time.Duration `yaml:"interval"`
}

// IndexFeed is one periodically polled index.
type IndexFeed struct {
	IndexName string        `yaml:"index_name"`
	Interval  time.Duration `yaml:"interval"`
}

// DatabaseConfig holds the TimescaleDB connection for recorded snapshots.
// Recording is disabled when no host is set.
type DatabaseConfig struct {
	Timescale DBConfig `yaml:"timescale"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Timescale.Host != ""
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// ServerConfig holds the status server settings.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metrics_path"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
