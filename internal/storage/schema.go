package storage

import "context"

// baseSchema creates every table this engine needs if absent. Column
// additions for schema evolution (§9) are handled separately by
// evolveSnapshotColumns so existing data is never dropped.
const baseSchema = `
CREATE TABLE IF NOT EXISTS ticker_master (
    ticker TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    market TEXT NOT NULL,
    active_flag BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS prices_daily (
    date DATE NOT NULL,
    ticker TEXT NOT NULL,
    open DOUBLE PRECISION,
    high DOUBLE PRECISION,
    low DOUBLE PRECISION,
    close DOUBLE PRECISION,
    volume DOUBLE PRECISION,
    value DOUBLE PRECISION,
    source_ts TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (date, ticker)
);

CREATE TABLE IF NOT EXISTS cap_daily (
    date DATE NOT NULL,
    ticker TEXT NOT NULL,
    mcap DOUBLE PRECISION,
    shares DOUBLE PRECISION,
    volume DOUBLE PRECISION,
    value DOUBLE PRECISION,
    source_ts TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (date, ticker)
);

CREATE TABLE IF NOT EXISTS fundamental_daily (
    date DATE NOT NULL,
    ticker TEXT NOT NULL,
    per DOUBLE PRECISION,
    pbr DOUBLE PRECISION,
    eps DOUBLE PRECISION,
    bps DOUBLE PRECISION,
    div DOUBLE PRECISION,
    dps DOUBLE PRECISION,
    source_ts TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (date, ticker)
);

CREATE TABLE IF NOT EXISTS snapshot_metrics (
    asof_date DATE NOT NULL,
    ticker TEXT NOT NULL,
    name TEXT,
    market TEXT,
    close DOUBLE PRECISION,
    mcap DOUBLE PRECISION,
    avg_value_20d DOUBLE PRECISION,
    turnover_20d DOUBLE PRECISION,
    per DOUBLE PRECISION,
    pbr DOUBLE PRECISION,
    div DOUBLE PRECISION,
    eps DOUBLE PRECISION,
    bps DOUBLE PRECISION,
    roe_proxy DOUBLE PRECISION,
    eps_positive BOOLEAN,
    sma20 DOUBLE PRECISION,
    sma50 DOUBLE PRECISION,
    sma200 DOUBLE PRECISION,
    dist_sma20 DOUBLE PRECISION,
    dist_sma50 DOUBLE PRECISION,
    dist_sma200 DOUBLE PRECISION,
    high_52w DOUBLE PRECISION,
    low_52w DOUBLE PRECISION,
    pos_52w DOUBLE PRECISION,
    vol_20d DOUBLE PRECISION,
    ret_1w DOUBLE PRECISION,
    ret_1m DOUBLE PRECISION,
    ret_3m DOUBLE PRECISION,
    ret_6m DOUBLE PRECISION,
    ret_1y DOUBLE PRECISION,
    calc_version TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (asof_date, ticker)
);

CREATE TABLE IF NOT EXISTS job_log (
    run_id TEXT NOT NULL,
    stage TEXT NOT NULL,
    status TEXT NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ,
    message TEXT,
    row_count INTEGER,
    PRIMARY KEY (run_id, stage)
);

CREATE INDEX IF NOT EXISTS idx_prices_ticker_date ON prices_daily(ticker, date);
CREATE INDEX IF NOT EXISTS idx_cap_ticker_date ON cap_daily(ticker, date);
CREATE INDEX IF NOT EXISTS idx_fund_ticker_date ON fundamental_daily(ticker, date);
CREATE INDEX IF NOT EXISTS idx_snapshot_asof ON snapshot_metrics(asof_date);
`

// evolvedSnapshotColumns are the columns §6/§9 require on snapshot_metrics
// that an older schema version may not have created yet.
var evolvedSnapshotColumns = []string{
	"ALTER TABLE snapshot_metrics ADD COLUMN IF NOT EXISTS dps DOUBLE PRECISION",
	"ALTER TABLE snapshot_metrics ADD COLUMN IF NOT EXISTS near_52w_high_ratio DOUBLE PRECISION",
	"ALTER TABLE snapshot_metrics ADD COLUMN IF NOT EXISTS eps_cagr_5y DOUBLE PRECISION",
	"ALTER TABLE snapshot_metrics ADD COLUMN IF NOT EXISTS eps_yoy_q DOUBLE PRECISION",
	"ALTER TABLE snapshot_metrics ADD COLUMN IF NOT EXISTS reserve_ratio DOUBLE PRECISION",
}

// ensureSchema creates tables if absent, then adds any missing
// SnapshotRow columns without touching existing rows — §4.1/§9's
// schema-migration contract.
func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, baseSchema); err != nil {
		return err
	}
	for _, stmt := range evolvedSnapshotColumns {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
