package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultWSURL            = "wss://www.deribit.com/ws/api/v2"
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultPingInterval     = 15 * time.Second
	DefaultPingTimeout      = 60 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultWSBufferSize     = 1024
	DefaultCallTimeout      = 30 * time.Second
	DefaultRateLimit        = 20
	DefaultRateBurst        = 20
	DefaultIVHistoryURL     = "https://api.greeks.live/api/v1"
	DefaultIVHistoryTimeout = 30 * time.Second
	DefaultSubscriberBuffer = 16
	DefaultFetchTimeout     = 30 * time.Second
	DefaultFeedInterval     = 5 * time.Second
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultBatchSize        = 1000
	DefaultFlushInterval    = 1 * time.Second
	DefaultBufferSize       = 10000
	DefaultServerPort       = 9090
	DefaultMetricsPath      = "/metrics"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// ApplyDefaults fills every unset optional field.
func (c *Config) ApplyDefaults() {
	// API defaults
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.HandshakeTimeout == 0 {
		c.API.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.API.PingInterval == 0 {
		c.API.PingInterval = DefaultPingInterval
	}
	if c.API.PingTimeout == 0 {
		c.API.PingTimeout = DefaultPingTimeout
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = DefaultWriteTimeout
	}
	if c.API.BufferSize == 0 {
		c.API.BufferSize = DefaultWSBufferSize
	}
	if c.API.CallTimeout == 0 {
		c.API.CallTimeout = DefaultCallTimeout
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = DefaultRateLimit
	}
	if c.API.RateBurst == 0 {
		c.API.RateBurst = DefaultRateBurst
	}

	if c.IVHistory.BaseURL == "" {
		c.IVHistory.BaseURL = DefaultIVHistoryURL
	}
	if c.IVHistory.Timeout == 0 {
		c.IVHistory.Timeout = DefaultIVHistoryTimeout
	}

	// Feed defaults
	if c.Feeds.SubscriberBuffer == 0 {
		c.Feeds.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if c.Feeds.FetchTimeout == 0 {
		c.Feeds.FetchTimeout = DefaultFetchTimeout
	}
	for i := range c.Feeds.Tickers {
		if c.Feeds.Tickers[i].Interval == 0 {
			c.Feeds.Tickers[i].Interval = DefaultFeedInterval
		}
	}
	for i := range c.Feeds.Indices {
		if c.Feeds.Indices[i].Interval == 0 {
			c.Feeds.Indices[i].Interval = DefaultFeedInterval
		}
	}

	applyDBDefaults(&c.Database.Timescale)

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultBufferSize
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
