package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of a pool that schema setup needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema creates the ticker_snapshots table. Rows are keyed by instrument
// and exchange timestamp so replays insert nothing.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS ticker_snapshots (
		instrument_name  TEXT             NOT NULL,
		exchange_ts      BIGINT           NOT NULL,
		received_at      BIGINT           NOT NULL,
		underlying_price DOUBLE PRECISION NOT NULL,
		index_price      DOUBLE PRECISION NOT NULL,
		mark_price       DOUBLE PRECISION NOT NULL,
		mark_iv          DOUBLE PRECISION NOT NULL,
		best_bid_price   DOUBLE PRECISION NOT NULL,
		best_ask_price   DOUBLE PRECISION NOT NULL,
		last_price       DOUBLE PRECISION NOT NULL,
		open_interest    DOUBLE PRECISION NOT NULL,
		delta            DOUBLE PRECISION,
		gamma            DOUBLE PRECISION,
		vega             DOUBLE PRECISION,
		PRIMARY KEY (instrument_name, exchange_ts)
	)`,
	`CREATE INDEX IF NOT EXISTS ticker_snapshots_received_at_idx ON ticker_snapshots (received_at)`,
}

// hypertable converts the table when the timescaledb extension is present.
const hypertable = `DO $$
BEGIN
	IF EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'timescaledb') THEN
		PERFORM create_hypertable('ticker_snapshots', 'exchange_ts',
			chunk_time_interval => 86400000000, if_not_exists => TRUE);
	END IF;
END $$`

// EnsureSchema creates missing tables and indexes. It is idempotent.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range Schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	if _, err := db.Exec(ctx, hypertable); err != nil {
		return fmt.Errorf("create hypertable: %w", err)
	}
	return nil
}
