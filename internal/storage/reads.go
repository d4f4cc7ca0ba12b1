package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/snapshot-engine/internal/types"
)

const dateFormat = "2006-01-02"

// GetPriceWindow returns, for every ticker, up to window most-recent
// rows with date <= endDate, ordered (ticker, date asc). value is
// COALESCE(cap.value, price.value) per §4.1.
func (s *Store) GetPriceWindow(ctx context.Context, endDate string, window int) ([]types.PriceRow, error) {
	const query = `
		WITH ranked AS (
			SELECT p.date, p.ticker, p.open, p.high, p.low, p.close, p.volume,
			       COALESCE(c.value, p.value) AS value,
			       ROW_NUMBER() OVER (PARTITION BY p.ticker ORDER BY p.date DESC) AS rn
			FROM prices_daily p
			LEFT JOIN cap_daily c ON c.ticker = p.ticker AND c.date = p.date
			WHERE p.date <= $1
		)
		SELECT date, ticker, open, high, low, close, volume, value
		FROM ranked
		WHERE rn <= $2
		ORDER BY ticker, date
	`
	rows, err := s.pool.Query(ctx, query, endDate, window)
	if err != nil {
		return nil, fmt.Errorf("getPriceWindow: %w", err)
	}
	defer rows.Close()

	var out []types.PriceRow
	for rows.Next() {
		var r types.PriceRow
		var date time.Time
		if err := rows.Scan(&date, &r.Ticker, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume, &r.Value); err != nil {
			return nil, fmt.Errorf("getPriceWindow scan: %w", err)
		}
		r.Date = date.Format(dateFormat)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetDailyJoin returns, for every active ticker, the cap+fundamental
// left-join at exact date=dt; missing rows yield null columns.
func (s *Store) GetDailyJoin(ctx context.Context, dt string) ([]types.DailyJoinRow, error) {
	const query = `
		SELECT t.ticker, c.mcap, c.shares, f.per, f.pbr, f.eps, f.bps, f.div, f.dps
		FROM ticker_master t
		LEFT JOIN cap_daily c ON c.ticker = t.ticker AND c.date = $1
		LEFT JOIN fundamental_daily f ON f.ticker = t.ticker AND f.date = $1
		WHERE t.active_flag = TRUE
	`
	rows, err := s.pool.Query(ctx, query, dt)
	if err != nil {
		return nil, fmt.Errorf("getDailyJoin: %w", err)
	}
	defer rows.Close()

	var out []types.DailyJoinRow
	for rows.Next() {
		var r types.DailyJoinRow
		if err := rows.Scan(&r.Ticker, &r.MCap, &r.Shares, &r.PER, &r.PBR, &r.EPS, &r.BPS, &r.Div, &r.DPS); err != nil {
			return nil, fmt.Errorf("getDailyJoin scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetFundamentalWindow returns all fundamentals rows with
// endDate - years <= date <= endDate, ordered (ticker, date).
func (s *Store) GetFundamentalWindow(ctx context.Context, endDate string, years int) ([]types.FundamentalRow, error) {
	const query = `
		SELECT date, ticker, per, pbr, eps, bps, div, dps
		FROM fundamental_daily
		WHERE date <= $1 AND date >= ($1::date - ($2::text || ' years')::interval)
		ORDER BY ticker, date
	`
	rows, err := s.pool.Query(ctx, query, endDate, years)
	if err != nil {
		return nil, fmt.Errorf("getFundamentalWindow: %w", err)
	}
	defer rows.Close()

	var out []types.FundamentalRow
	for rows.Next() {
		var r types.FundamentalRow
		var date time.Time
		if err := rows.Scan(&date, &r.Ticker, &r.PER, &r.PBR, &r.EPS, &r.BPS, &r.Div, &r.DPS); err != nil {
			return nil, fmt.Errorf("getFundamentalWindow scan: %w", err)
		}
		r.Date = date.Format(dateFormat)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetLatestPriceDate returns the most recent date present in
// prices_daily, or "" if the table is empty.
func (s *Store) GetLatestPriceDate(ctx context.Context) (string, error) {
	return s.maxDate(ctx, "prices_daily", "date")
}

// GetLatestSnapshotDate returns the most recent asof_date present in
// snapshot_metrics, or "" if empty.
func (s *Store) GetLatestSnapshotDate(ctx context.Context) (string, error) {
	return s.maxDate(ctx, "snapshot_metrics", "asof_date")
}

func (s *Store) maxDate(ctx context.Context, table, column string) (string, error) {
	query := fmt.Sprintf("SELECT MAX(%s) FROM %s", column, table)
	var date *time.Time
	if err := s.pool.QueryRow(ctx, query).Scan(&date); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("maxDate(%s.%s): %w", table, column, err)
	}
	if date == nil {
		return "", nil
	}
	return date.Format(dateFormat), nil
}

// CountActiveTickers returns the number of tickers with active_flag=true.
func (s *Store) CountActiveTickers(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ticker_master WHERE active_flag = TRUE`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("countActiveTickers: %w", err)
	}
	return n, nil
}

// ListActiveTickers returns every ticker with active_flag=true, used by
// the reserve-only sub-pipeline when it needs a ticker list without
// forcing a full ticker refresh.
func (s *Store) ListActiveTickers(ctx context.Context) ([]types.Ticker, error) {
	const query = `SELECT ticker, name, market, active_flag, updated_at FROM ticker_master WHERE active_flag = TRUE ORDER BY ticker`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listActiveTickers: %w", err)
	}
	defer rows.Close()

	var out []types.Ticker
	for rows.Next() {
		var t types.Ticker
		var market string
		if err := rows.Scan(&t.Ticker, &t.Name, &market, &t.ActiveFlag, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("listActiveTickers scan: %w", err)
		}
		t.Market = types.Market(market)
		out = append(out, t)
	}
	return out, rows.Err()
}

// LoadSnapshot returns every SnapshotRow for the given as-of date,
// ordered by ticker — the only read-only entry point external
// consumers (the C6 boundary) are allowed to call.
func (s *Store) LoadSnapshot(ctx context.Context, asof string) ([]types.SnapshotRow, error) {
	const query = `
		SELECT asof_date, ticker, name, market, close, mcap, avg_value_20d, turnover_20d,
		       per, pbr, div, dps, eps, bps, roe_proxy, eps_positive, sma20, sma50, sma200,
		       dist_sma20, dist_sma50, dist_sma200, high_52w, low_52w, pos_52w, near_52w_high_ratio,
		       vol_20d, ret_1w, ret_1m, ret_3m, ret_6m, ret_1y, eps_cagr_5y, eps_yoy_q,
		       reserve_ratio, calc_version
		FROM snapshot_metrics
		WHERE asof_date = $1
		ORDER BY ticker
	`
	rows, err := s.pool.Query(ctx, query, asof)
	if err != nil {
		return nil, fmt.Errorf("loadSnapshot: %w", err)
	}
	defer rows.Close()

	var out []types.SnapshotRow
	for rows.Next() {
		var r types.SnapshotRow
		var market string
		var date time.Time
		if err := rows.Scan(
			&date, &r.Ticker, &r.Name, &market, &r.Close, &r.MCap, &r.AvgValue20d, &r.Turnover20d,
			&r.PER, &r.PBR, &r.Div, &r.DPS, &r.EPS, &r.BPS, &r.ROEProxy, &r.EPSPositive, &r.SMA20, &r.SMA50, &r.SMA200,
			&r.DistSMA20, &r.DistSMA50, &r.DistSMA200, &r.High52w, &r.Low52w, &r.Pos52w, &r.Near52wHighRatio,
			&r.Vol20d, &r.Ret1w, &r.Ret1m, &r.Ret3m, &r.Ret6m, &r.Ret1y, &r.EPSCagr5y, &r.EPSYoYQ,
			&r.ReserveRatio, &r.CalcVersion,
		); err != nil {
			return nil, fmt.Errorf("loadSnapshot scan: %w", err)
		}
		r.AsofDate = date.Format(dateFormat)
		r.Market = types.Market(market)
		out = append(out, r)
	}
	return out, rows.Err()
}
