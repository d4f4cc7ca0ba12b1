package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/wonny/snapshot-engine/internal/types"
	"github.com/wonny/snapshot-engine/pkg/config"
	"github.com/wonny/snapshot-engine/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

func f(v float64) *float64 { return &v }

// fakeMarket is an in-memory marketSource double.
type fakeMarket struct {
	businessDay time.Time
	tickers     []types.Ticker
	ohlcv       map[string][]types.PriceRow
	tradingDays []time.Time
	caps        map[string][]types.CapRow
	funds       map[string][]types.FundamentalRow
}

func (m *fakeMarket) RecentBusinessDay(ctx context.Context) (time.Time, error) {
	return m.businessDay, nil
}
func (m *fakeMarket) Tickers(ctx context.Context) ([]types.Ticker, error) { return m.tickers, nil }
func (m *fakeMarket) OHLCV(ctx context.Context, from, to time.Time, ticker string) ([]types.PriceRow, error) {
	return m.ohlcv[ticker], nil
}
func (m *fakeMarket) TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return m.tradingDays, nil
}
func (m *fakeMarket) MarketCap(ctx context.Context, date time.Time) ([]types.CapRow, error) {
	return m.caps[date.Format(dateFormat)], nil
}
func (m *fakeMarket) Fundamental(ctx context.Context, date time.Time) ([]types.FundamentalRow, error) {
	return m.funds[date.Format(dateFormat)], nil
}

// fakeStore is an in-memory dataStore double backed by plain slices,
// mirroring the real Store's upsert/read contract without a database.
type fakeStore struct {
	tickers      []types.Ticker
	prices       []types.PriceRow
	caps         []types.CapRow
	funds        []types.FundamentalRow
	reserve      map[string]float64
	snapshots    map[string][]types.SnapshotRow
	snapshotErr  error
	noCachedData bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{reserve: map[string]float64{}, snapshots: map[string][]types.SnapshotRow{}}
}

func (s *fakeStore) UpsertTickers(ctx context.Context, rows []types.Ticker) (int, error) {
	s.tickers = rows
	return len(rows), nil
}
func (s *fakeStore) UpsertPrices(ctx context.Context, rows []types.PriceRow) (int, error) {
	s.prices = append(s.prices, rows...)
	return len(rows), nil
}
func (s *fakeStore) UpsertCap(ctx context.Context, rows []types.CapRow) (int, error) {
	s.caps = append(s.caps, rows...)
	return len(rows), nil
}
func (s *fakeStore) UpsertFundamental(ctx context.Context, rows []types.FundamentalRow) (int, error) {
	s.funds = append(s.funds, rows...)
	return len(rows), nil
}
func (s *fakeStore) UpsertReserveRatio(ctx context.Context, asof string, results []types.ReserveRatioResult) (int, error) {
	for _, r := range results {
		s.reserve[r.Ticker] = r.ReserveRatio
	}
	return len(results), nil
}
func (s *fakeStore) GetPriceWindow(ctx context.Context, endDate string, window int) ([]types.PriceRow, error) {
	if s.noCachedData {
		return nil, nil
	}
	return s.prices, nil
}
func (s *fakeStore) GetDailyJoin(ctx context.Context, dt string) ([]types.DailyJoinRow, error) {
	var out []types.DailyJoinRow
	for _, c := range s.caps {
		if c.Date != dt {
			continue
		}
		out = append(out, types.DailyJoinRow{Ticker: c.Ticker, MCap: c.MCap, Shares: c.Shares})
	}
	return out, nil
}
func (s *fakeStore) GetFundamentalWindow(ctx context.Context, endDate string, years int) ([]types.FundamentalRow, error) {
	return s.funds, nil
}
func (s *fakeStore) GetLatestPriceDate(ctx context.Context) (string, error) {
	if len(s.prices) == 0 {
		return "", nil
	}
	return s.prices[len(s.prices)-1].Date, nil
}
func (s *fakeStore) GetLatestSnapshotDate(ctx context.Context) (string, error) {
	for d := range s.snapshots {
		return d, nil
	}
	return "", nil
}
func (s *fakeStore) CountActiveTickers(ctx context.Context) (int, error) { return len(s.tickers), nil }
func (s *fakeStore) ListActiveTickers(ctx context.Context) ([]types.Ticker, error) {
	return s.tickers, nil
}
func (s *fakeStore) ReplaceSnapshot(ctx context.Context, asof string, rows []types.SnapshotRow) error {
	if s.snapshotErr != nil {
		return s.snapshotErr
	}
	s.snapshots[asof] = rows
	return nil
}

type fakeScraper struct {
	results []types.ReserveRatioResult
}

func (s *fakeScraper) Run(ctx context.Context, tickers []string) []types.ReserveRatioResult {
	return s.results
}

// TestRun_ColdRunSingleTickerProducesOneSnapshotRow exercises the full
// pipeline end to end against fakes: one ticker, 21 daily prices ending
// on the as-of date, matching cap/fundamental rows. The resulting
// snapshot must contain exactly one row with non-null close/mcap.
func TestRun_ColdRunSingleTickerProducesOneSnapshotRow(t *testing.T) {
	asof := "2024-03-29"
	ticker := types.Ticker{Ticker: "005930", Name: "Samsung", Market: types.KOSPI, ActiveFlag: true}

	asofTime, _ := time.Parse(dateFormat, asof)
	var prices []types.PriceRow
	var tradingDays []time.Time
	caps := map[string][]types.CapRow{}
	funds := map[string][]types.FundamentalRow{}

	d := asofTime.AddDate(0, 0, -20)
	for !d.After(asofTime) {
		ds := d.Format(dateFormat)
		prices = append(prices, types.PriceRow{Date: ds, Ticker: ticker.Ticker, Close: f(70000), Value: f(1e9)})
		tradingDays = append(tradingDays, d)
		caps[ds] = []types.CapRow{{Date: ds, Ticker: ticker.Ticker, MCap: f(4e14), Shares: f(5.9e9)}}
		funds[ds] = []types.FundamentalRow{{Date: ds, Ticker: ticker.Ticker, PER: f(10), PBR: f(1.2), EPS: f(7000), BPS: f(58000)}}
		d = d.AddDate(0, 0, 1)
	}

	fm := &fakeMarket{
		businessDay: asofTime,
		tickers:     []types.Ticker{ticker},
		ohlcv:       map[string][]types.PriceRow{ticker.Ticker: prices},
		tradingDays: tradingDays,
		caps:        caps,
		funds:       funds,
	}
	fs := newFakeStore()
	o := &Orchestrator{store: fs, market: fm, scraper: &fakeScraper{}, logger: testLogger()}

	result, err := o.Run(context.Background(), asof, 30)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Tickers != 1 {
		t.Fatalf("Tickers = %d, want 1", result.Tickers)
	}
	if result.SnapshotRows != 1 {
		t.Fatalf("SnapshotRows = %d, want 1", result.SnapshotRows)
	}

	rows := fs.snapshots[asof]
	if len(rows) != 1 {
		t.Fatalf("persisted snapshot rows = %d, want 1", len(rows))
	}
	if rows[0].Close == nil || rows[0].MCap == nil {
		t.Fatalf("expected non-null close/mcap, got %+v", rows[0])
	}
}

// TestRebuildSnapshotOnly_NoCachedDataReturnsCacheError covers §4.5's
// snapshot-only cold-start guard: with no cached tickers at all, the
// error must be caller-visible and mention the cache, and no rows
// should be created.
func TestRebuildSnapshotOnly_NoCachedDataReturnsCacheError(t *testing.T) {
	fs := newFakeStore()
	fm := &fakeMarket{}
	o := &Orchestrator{store: fs, market: fm, scraper: &fakeScraper{}, logger: testLogger()}

	_, err := o.RebuildSnapshotOnly(context.Background(), "2024-03-29", 30)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "cache") {
		t.Fatalf("expected error to mention the cache, got %v", err)
	}
	if len(fs.snapshots) != 0 {
		t.Fatalf("expected no snapshot rows created, got %d dates", len(fs.snapshots))
	}
}

// TestRebuildSnapshotOnly_NoCachedPriceWindowErrors covers the case
// where tickers exist but no price history is cached for the as-of
// date: buildAndReplaceSnapshot must fail rather than silently write
// an empty snapshot.
func TestRebuildSnapshotOnly_NoCachedPriceWindowErrors(t *testing.T) {
	fs := newFakeStore()
	fs.tickers = []types.Ticker{{Ticker: "005930", ActiveFlag: true}}
	fs.noCachedData = true
	fm := &fakeMarket{}
	o := &Orchestrator{store: fs, market: fm, scraper: &fakeScraper{}, logger: testLogger()}

	_, err := o.RebuildSnapshotOnly(context.Background(), "2024-03-29", 30)
	if err == nil {
		t.Fatal("expected error for missing cached price data, got nil")
	}
	if len(fs.snapshots) != 0 {
		t.Fatalf("expected no snapshot rows created, got %d dates", len(fs.snapshots))
	}
}

// TestUpdateReserveRatioOnly_WritesRatiosWithoutTouchingSnapshot
// confirms the reserve-only pipeline does not chain a rebuild unless
// asked, per the resolved Open Question (caller opts in explicitly).
func TestUpdateReserveRatioOnly_WritesRatiosWithoutTouchingSnapshot(t *testing.T) {
	fs := newFakeStore()
	fs.tickers = []types.Ticker{{Ticker: "005930", ActiveFlag: true}}
	fm := &fakeMarket{}
	scraper := &fakeScraper{results: []types.ReserveRatioResult{
		{Ticker: "005930", ReserveRatio: 12345.6, Outcome: types.OutcomeSuccess},
	}}
	o := &Orchestrator{store: fs, market: fm, scraper: scraper, logger: testLogger()}

	result, err := o.UpdateReserveRatioOnly(context.Background(), "2024-03-29", false)
	if err != nil {
		t.Fatalf("UpdateReserveRatioOnly: %v", err)
	}
	if result.ReserveRatioRows != 1 {
		t.Fatalf("ReserveRatioRows = %d, want 1", result.ReserveRatioRows)
	}
	if result.SnapshotRows != 0 {
		t.Fatalf("SnapshotRows = %d, want 0 (no chain requested)", result.SnapshotRows)
	}
	if fs.reserve["005930"] != 12345.6 {
		t.Fatalf("reserve ratio not persisted: %v", fs.reserve)
	}
}

func TestFundamentalAnchorDates_IncludesMonthQuarterAndYearAnchors(t *testing.T) {
	asof, _ := time.Parse(dateFormat, "2024-03-29")

	var tradingDays []time.Time
	d := asof.AddDate(-6, 0, 1)
	for !d.After(asof) {
		tradingDays = append(tradingDays, d)
		d = d.AddDate(0, 0, 1)
	}

	anchors := fundamentalAnchorDates(tradingDays, asof)
	if len(anchors) == 0 {
		t.Fatal("expected non-empty anchor set")
	}

	last := anchors[0]
	for _, a := range anchors[1:] {
		if a.Before(last) {
			t.Fatalf("anchors not sorted ascending: %v before %v", a, last)
		}
		last = a
	}

	found := false
	for _, a := range anchors {
		if a.Equal(asof) {
			found = true
		}
	}
	if !found {
		t.Fatal("expected asof itself among anchors")
	}
}
