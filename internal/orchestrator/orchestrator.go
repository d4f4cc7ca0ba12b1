// Package orchestrator wires the market-data client, reserve-ratio
// scraper, metrics engine, and storage layer into the three batch
// sub-pipelines described in §4.5: a full run, a snapshot-only rebuild,
// and a reserve-ratio-only update.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/snapshot-engine/internal/market"
	"github.com/wonny/snapshot-engine/internal/metrics"
	"github.com/wonny/snapshot-engine/internal/reserveratio"
	"github.com/wonny/snapshot-engine/internal/storage"
	"github.com/wonny/snapshot-engine/internal/types"
	"github.com/wonny/snapshot-engine/pkg/logger"
)

const dateFormat = "2006-01-02"

// DefaultLookbackDays matches §4.5's default full-run lookback.
const DefaultLookbackDays = 400

// tickerProgressEvery and capProgressEvery match §4.5's stated cadence.
const (
	tickerProgressEvery = 200
	capProgressEvery    = 30
)

// dataStore is the subset of *storage.Store the orchestrator needs,
// narrowed to an interface so tests can substitute an in-memory fake.
type dataStore interface {
	UpsertTickers(ctx context.Context, rows []types.Ticker) (int, error)
	UpsertPrices(ctx context.Context, rows []types.PriceRow) (int, error)
	UpsertCap(ctx context.Context, rows []types.CapRow) (int, error)
	UpsertFundamental(ctx context.Context, rows []types.FundamentalRow) (int, error)
	UpsertReserveRatio(ctx context.Context, asof string, results []types.ReserveRatioResult) (int, error)
	GetPriceWindow(ctx context.Context, endDate string, window int) ([]types.PriceRow, error)
	GetDailyJoin(ctx context.Context, dt string) ([]types.DailyJoinRow, error)
	GetFundamentalWindow(ctx context.Context, endDate string, years int) ([]types.FundamentalRow, error)
	GetLatestPriceDate(ctx context.Context) (string, error)
	GetLatestSnapshotDate(ctx context.Context) (string, error)
	CountActiveTickers(ctx context.Context) (int, error)
	ListActiveTickers(ctx context.Context) ([]types.Ticker, error)
	ReplaceSnapshot(ctx context.Context, asof string, rows []types.SnapshotRow) error
}

// marketSource is the subset of *market.Client the orchestrator needs.
type marketSource interface {
	RecentBusinessDay(ctx context.Context) (time.Time, error)
	Tickers(ctx context.Context) ([]types.Ticker, error)
	OHLCV(ctx context.Context, from, to time.Time, ticker string) ([]types.PriceRow, error)
	TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error)
	MarketCap(ctx context.Context, date time.Time) ([]types.CapRow, error)
	Fundamental(ctx context.Context, date time.Time) ([]types.FundamentalRow, error)
}

// reserveScraper is the subset of *reserveratio.Scraper the orchestrator needs.
type reserveScraper interface {
	Run(ctx context.Context, tickers []string) []types.ReserveRatioResult
}

// Orchestrator composes one dataStore with one marketSource and one
// reserveScraper across all three sub-pipelines.
type Orchestrator struct {
	store   dataStore
	market  marketSource
	scraper reserveScraper
	logger  *logger.Logger
}

// New builds an Orchestrator.
func New(store *storage.Store, marketClient *market.Client, scraper *reserveratio.Scraper, log *logger.Logger) *Orchestrator {
	return &Orchestrator{store: store, market: marketClient, scraper: scraper, logger: log}
}

// RunResult summarizes one sub-pipeline invocation for CLI/job reporting.
type RunResult struct {
	AsofDate         string
	Tickers          int
	PriceRows        int
	CapRows          int
	FundamentalRows  int
	ReserveRatioRows int
	SnapshotRows     int
}

// resolveAsof returns the provided date if non-empty, else falls back
// to the market client's recent business day.
func (o *Orchestrator) resolveAsof(ctx context.Context, asof string) (string, error) {
	if asof != "" {
		return asof, nil
	}
	day, err := o.market.RecentBusinessDay(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve asof: %w", err)
	}
	return day.Format(dateFormat), nil
}
