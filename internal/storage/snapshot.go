package storage

import (
	"context"
	"fmt"

	"github.com/wonny/snapshot-engine/internal/types"
)

// ReplaceSnapshot implements §4.1/§9's atomic replace: inside one
// transaction, delete every row at asof then insert the new set. On
// any failure the transaction rolls back and the previous snapshot for
// asof (and every other date) is left untouched.
func (s *Store) ReplaceSnapshot(ctx context.Context, asof string, rows []types.SnapshotRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replaceSnapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM snapshot_metrics WHERE asof_date = $1`, asof); err != nil {
		return fmt.Errorf("replaceSnapshot delete: %w", err)
	}

	const stmt = `
		INSERT INTO snapshot_metrics(
			asof_date, ticker, name, market, close, mcap, avg_value_20d, turnover_20d,
			per, pbr, div, dps, eps, bps, roe_proxy, eps_positive, sma20, sma50, sma200,
			dist_sma20, dist_sma50, dist_sma200, high_52w, low_52w, pos_52w, near_52w_high_ratio,
			vol_20d, ret_1w, ret_1m, ret_3m, ret_6m, ret_1y, eps_cagr_5y, eps_yoy_q,
			reserve_ratio, calc_version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36
		)
	`
	for _, r := range rows {
		if _, err := tx.Exec(ctx, stmt,
			r.AsofDate, r.Ticker, r.Name, string(r.Market), r.Close, r.MCap, r.AvgValue20d, r.Turnover20d,
			r.PER, r.PBR, r.Div, r.DPS, r.EPS, r.BPS, r.ROEProxy, r.EPSPositive, r.SMA20, r.SMA50, r.SMA200,
			r.DistSMA20, r.DistSMA50, r.DistSMA200, r.High52w, r.Low52w, r.Pos52w, r.Near52wHighRatio,
			r.Vol20d, r.Ret1w, r.Ret1m, r.Ret3m, r.Ret6m, r.Ret1y, r.EPSCagr5y, r.EPSYoYQ,
			r.ReserveRatio, r.CalcVersion,
		); err != nil {
			return fmt.Errorf("replaceSnapshot insert %s: %w", r.Ticker, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replaceSnapshot: %w", err)
	}
	return nil
}
