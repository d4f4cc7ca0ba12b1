package orchestrator

import (
	"context"
	"fmt"

	"github.com/wonny/snapshot-engine/internal/metrics"
)

// fundamentalYears bounds GetFundamentalWindow's lookback for EPS CAGR,
// which needs up to 5 years of history plus a year of slack.
const fundamentalYears = 6

// buildAndReplaceSnapshot reads back the persisted price/daily/
// fundamental rows for asof, runs the metrics engine, and atomically
// replaces the snapshot for that date. Shared by Run and
// RebuildSnapshotOnly.
func (o *Orchestrator) buildAndReplaceSnapshot(ctx context.Context, asofDate string, lookbackDays int) (int, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	priceWindow, err := o.store.GetPriceWindow(ctx, asofDate, lookbackDays)
	if err != nil {
		return 0, fmt.Errorf("read price window: %w", err)
	}
	if len(priceWindow) == 0 {
		return 0, fmt.Errorf("no cached price data for %s: run a full backfill first", asofDate)
	}

	daily, err := o.store.GetDailyJoin(ctx, asofDate)
	if err != nil {
		return 0, fmt.Errorf("read daily join: %w", err)
	}

	fundHist, err := o.store.GetFundamentalWindow(ctx, asofDate, fundamentalYears)
	if err != nil {
		return 0, fmt.Errorf("read fundamental window: %w", err)
	}

	tickers, err := o.store.ListActiveTickers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active tickers: %w", err)
	}

	snapRows := metrics.BuildSnapshot(priceWindow, daily, fundHist, tickers, asofDate)

	if err := o.store.ReplaceSnapshot(ctx, asofDate, snapRows); err != nil {
		return 0, fmt.Errorf("replace snapshot: %w", err)
	}

	return len(snapRows), nil
}

// RebuildSnapshotOnly implements §4.5's snapshot-only rebuild: it never
// touches the market-data client, relying entirely on whatever OHLCV,
// market-cap, and fundamental rows are already cached in storage. If
// asof is empty it falls back to the latest cached price date, then the
// latest cached snapshot date.
func (o *Orchestrator) RebuildSnapshotOnly(ctx context.Context, asof string, lookbackDays int) (*RunResult, error) {
	asofDate, err := o.resolveCachedAsof(ctx, asof)
	if err != nil {
		return nil, err
	}

	tickerCount, err := o.store.CountActiveTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active tickers: %w", err)
	}
	if tickerCount == 0 {
		return nil, fmt.Errorf("no cached tickers: run a full backfill before a snapshot-only rebuild")
	}

	snapRows, err := o.buildAndReplaceSnapshot(ctx, asofDate, lookbackDays)
	if err != nil {
		return nil, err
	}

	return &RunResult{AsofDate: asofDate, Tickers: tickerCount, SnapshotRows: snapRows}, nil
}

// resolveCachedAsof resolves asof without calling the market client:
// an explicit date wins, else the latest cached price date, else the
// latest cached snapshot date. Returns an error naming the cache as the
// cause when neither is available.
func (o *Orchestrator) resolveCachedAsof(ctx context.Context, asof string) (string, error) {
	if asof != "" {
		return asof, nil
	}

	priceDate, err := o.store.GetLatestPriceDate(ctx)
	if err != nil {
		return "", fmt.Errorf("read latest cached price date: %w", err)
	}
	if priceDate != "" {
		return priceDate, nil
	}

	snapDate, err := o.store.GetLatestSnapshotDate(ctx)
	if err != nil {
		return "", fmt.Errorf("read latest cached snapshot date: %w", err)
	}
	if snapDate != "" {
		return snapDate, nil
	}

	return "", fmt.Errorf("no cached price or snapshot data available: run a full backfill first")
}

// UpdateReserveRatioOnly implements §4.5's reserve-ratio-only update: it
// scrapes reserve ratios for every active ticker and writes them into
// the snapshot row for asof, without touching price/cap/fundamental
// data. If chainRebuild is true it then rebuilds the full snapshot so
// every other field reflects the latest cache as well.
func (o *Orchestrator) UpdateReserveRatioOnly(ctx context.Context, asof string, chainRebuild bool) (*RunResult, error) {
	asofDate, err := o.resolveCachedAsof(ctx, asof)
	if err != nil {
		return nil, err
	}

	tickers, err := o.store.ListActiveTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active tickers: %w", err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no cached tickers: run a full backfill before a reserve-ratio update")
	}

	tickerIDs := make([]string, len(tickers))
	for i, t := range tickers {
		tickerIDs[i] = t.Ticker
	}

	results := o.scraper.Run(ctx, tickerIDs)

	reserveRows, err := o.store.UpsertReserveRatio(ctx, asofDate, results)
	if err != nil {
		return nil, fmt.Errorf("upsert reserve ratio: %w", err)
	}

	result := &RunResult{AsofDate: asofDate, Tickers: len(tickers), ReserveRatioRows: reserveRows}

	if chainRebuild {
		snapRows, err := o.buildAndReplaceSnapshot(ctx, asofDate, DefaultLookbackDays)
		if err != nil {
			return nil, fmt.Errorf("chained rebuild: %w", err)
		}
		result.SnapshotRows = snapRows
	}

	return result, nil
}
