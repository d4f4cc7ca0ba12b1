package storage

import (
	"context"
	"fmt"

	"github.com/wonny/snapshot-engine/internal/types"
)

// UpsertTickers is idempotent by ticker; re-running with the same rows
// leaves row count and column values unchanged (§8).
func (s *Store) UpsertTickers(ctx context.Context, rows []types.Ticker) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsertTickers: %w", err)
	}
	defer tx.Rollback(ctx)

	const stmt = `
		INSERT INTO ticker_master(ticker, name, market, active_flag, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (ticker) DO UPDATE SET
			name=EXCLUDED.name,
			market=EXCLUDED.market,
			active_flag=EXCLUDED.active_flag,
			updated_at=now()
	`
	for _, t := range rows {
		if _, err := tx.Exec(ctx, stmt, t.Ticker, t.Name, string(t.Market), t.ActiveFlag); err != nil {
			return 0, fmt.Errorf("upsert ticker %s: %w", t.Ticker, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsertTickers: %w", err)
	}
	return len(rows), nil
}

// UpsertPrices upserts OHLCV rows by (date, ticker) within one
// transaction covering the whole batch (§5).
func (s *Store) UpsertPrices(ctx context.Context, rows []types.PriceRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsertPrices: %w", err)
	}
	defer tx.Rollback(ctx)

	const stmt = `
		INSERT INTO prices_daily(date, ticker, open, high, low, close, volume, value, source_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (date, ticker) DO UPDATE SET
			open=EXCLUDED.open, high=EXCLUDED.high, low=EXCLUDED.low, close=EXCLUDED.close,
			volume=EXCLUDED.volume, value=EXCLUDED.value, source_ts=now()
	`
	for _, r := range rows {
		if _, err := tx.Exec(ctx, stmt, r.Date, r.Ticker, r.Open, r.High, r.Low, r.Close, r.Volume, r.Value); err != nil {
			return 0, fmt.Errorf("upsert price %s/%s: %w", r.Ticker, r.Date, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsertPrices: %w", err)
	}
	return len(rows), nil
}

// UpsertCap upserts market-cap rows by (date, ticker).
func (s *Store) UpsertCap(ctx context.Context, rows []types.CapRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsertCap: %w", err)
	}
	defer tx.Rollback(ctx)

	const stmt = `
		INSERT INTO cap_daily(date, ticker, mcap, shares, volume, value, source_ts)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (date, ticker) DO UPDATE SET
			mcap=EXCLUDED.mcap, shares=EXCLUDED.shares, volume=EXCLUDED.volume, value=EXCLUDED.value, source_ts=now()
	`
	for _, r := range rows {
		if _, err := tx.Exec(ctx, stmt, r.Date, r.Ticker, r.MCap, r.Shares, r.Volume, r.Value); err != nil {
			return 0, fmt.Errorf("upsert cap %s/%s: %w", r.Ticker, r.Date, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsertCap: %w", err)
	}
	return len(rows), nil
}

// UpsertFundamental upserts fundamentals rows by (date, ticker).
func (s *Store) UpsertFundamental(ctx context.Context, rows []types.FundamentalRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsertFundamental: %w", err)
	}
	defer tx.Rollback(ctx)

	const stmt = `
		INSERT INTO fundamental_daily(date, ticker, per, pbr, eps, bps, div, dps, source_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (date, ticker) DO UPDATE SET
			per=EXCLUDED.per, pbr=EXCLUDED.pbr, eps=EXCLUDED.eps, bps=EXCLUDED.bps,
			div=EXCLUDED.div, dps=EXCLUDED.dps, source_ts=now()
	`
	for _, r := range rows {
		if _, err := tx.Exec(ctx, stmt, r.Date, r.Ticker, r.PER, r.PBR, r.EPS, r.BPS, r.Div, r.DPS); err != nil {
			return 0, fmt.Errorf("upsert fundamental %s/%s: %w", r.Ticker, r.Date, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsertFundamental: %w", err)
	}
	return len(rows), nil
}

// UpsertReserveRatio writes the latest scraped reserve-ratio figure onto
// the snapshot row for the given as-of date (used by the reserve-only
// sub-pipeline, §4.5).
func (s *Store) UpsertReserveRatio(ctx context.Context, asof string, results []types.ReserveRatioResult) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsertReserveRatio: %w", err)
	}
	defer tx.Rollback(ctx)

	const stmt = `UPDATE snapshot_metrics SET reserve_ratio = $1 WHERE asof_date = $2 AND ticker = $3`
	updated := 0
	for _, r := range results {
		tag, err := tx.Exec(ctx, stmt, r.ReserveRatio, asof, r.Ticker)
		if err != nil {
			return 0, fmt.Errorf("upsert reserve ratio %s: %w", r.Ticker, err)
		}
		updated += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsertReserveRatio: %w", err)
	}
	return updated, nil
}
