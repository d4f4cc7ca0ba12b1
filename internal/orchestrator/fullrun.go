package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/snapshot-engine/internal/types"
)

// Run implements §4.5's full run: resolve asof, refresh tickers,
// backfill OHLCV/market-cap over the lookback window, derive
// fundamental anchor dates over a 6-year span, then build and persist
// the snapshot.
func (o *Orchestrator) Run(ctx context.Context, asof string, lookbackDays int) (*RunResult, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	asofDate, err := o.resolveAsof(ctx, asof)
	if err != nil {
		return nil, err
	}
	asofTime, err := time.Parse(dateFormat, asofDate)
	if err != nil {
		return nil, fmt.Errorf("parse asof %q: %w", asofDate, err)
	}

	result := &RunResult{AsofDate: asofDate}

	tickers, err := o.market.Tickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tickers: %w", err)
	}
	tickerCount, err := o.store.UpsertTickers(ctx, tickers)
	if err != nil {
		return nil, fmt.Errorf("upsert tickers: %w", err)
	}
	result.Tickers = tickerCount
	o.logger.WithField("count", tickerCount).Info("tickers refreshed")

	fromTime := asofTime.AddDate(0, 0, -2*lookbackDays)
	if err := o.collectPrices(ctx, tickers, fromTime, asofTime, result); err != nil {
		return nil, err
	}

	tradingDates, err := o.market.TradingDates(ctx, fromTime, asofTime)
	if err != nil {
		return nil, fmt.Errorf("enumerate trading dates: %w", err)
	}
	if err := o.collectMarketCap(ctx, tradingDates, result); err != nil {
		return nil, err
	}

	anchors := fundamentalAnchorDates(tradingDates, asofTime)
	if err := o.collectFundamentals(ctx, anchors, result); err != nil {
		return nil, err
	}

	snapRows, err := o.buildAndReplaceSnapshot(ctx, asofDate, lookbackDays)
	if err != nil {
		return nil, err
	}
	result.SnapshotRows = snapRows

	return result, nil
}

func (o *Orchestrator) collectPrices(ctx context.Context, tickers []types.Ticker, from, to time.Time, result *RunResult) error {
	for i, t := range tickers {
		rows, err := o.market.OHLCV(ctx, from, to, t.Ticker)
		if err != nil {
			return fmt.Errorf("fetch OHLCV for %s: %w", t.Ticker, err)
		}
		n, err := o.store.UpsertPrices(ctx, rows)
		if err != nil {
			return fmt.Errorf("upsert prices for %s: %w", t.Ticker, err)
		}
		result.PriceRows += n

		if (i+1)%tickerProgressEvery == 0 {
			o.logger.WithFields(map[string]interface{}{"done": i + 1, "total": len(tickers)}).Info("price backfill progress")
		}
	}
	return nil
}

func (o *Orchestrator) collectMarketCap(ctx context.Context, dates []time.Time, result *RunResult) error {
	for i, d := range dates {
		rows, err := o.market.MarketCap(ctx, d)
		if err != nil {
			return fmt.Errorf("fetch market cap for %s: %w", d.Format(dateFormat), err)
		}
		n, err := o.store.UpsertCap(ctx, rows)
		if err != nil {
			return fmt.Errorf("upsert cap for %s: %w", d.Format(dateFormat), err)
		}
		result.CapRows += n

		if (i+1)%capProgressEvery == 0 {
			o.logger.WithFields(map[string]interface{}{"done": i + 1, "total": len(dates)}).Info("market cap backfill progress")
		}
	}
	return nil
}

func (o *Orchestrator) collectFundamentals(ctx context.Context, anchors []time.Time, result *RunResult) error {
	for _, d := range anchors {
		rows, err := o.market.Fundamental(ctx, d)
		if err != nil {
			return fmt.Errorf("fetch fundamentals for %s: %w", d.Format(dateFormat), err)
		}
		n, err := o.store.UpsertFundamental(ctx, rows)
		if err != nil {
			return fmt.Errorf("upsert fundamentals for %s: %w", d.Format(dateFormat), err)
		}
		result.FundamentalRows += n
	}
	return nil
}

// fundamentalAnchorDates implements §4.5 step 5: from the trading dates
// in [asof-6y, asof], take the last trading day of each calendar month
// and quarter, plus the last trading day <= asof-k years for k in 1..5,
// plus the last trading date in the window (the as-of date itself when it
// is a trading day). De-duplicated and sorted ascending.
func fundamentalAnchorDates(tradingDates []time.Time, asof time.Time) []time.Time {
	sixYearsAgo := asof.AddDate(-6, 0, 0)

	var inWindow []time.Time
	for _, d := range tradingDates {
		if !d.Before(sixYearsAgo) && !d.After(asof) {
			inWindow = append(inWindow, d)
		}
	}
	if len(inWindow) == 0 {
		return nil
	}

	seen := make(map[string]time.Time)
	add := func(d time.Time) { seen[d.Format(dateFormat)] = d }

	monthEnds := lastPerPeriod(inWindow, func(d time.Time) string {
		return fmt.Sprintf("%04d-%02d", d.Year(), d.Month())
	})
	for _, d := range monthEnds {
		add(d)
	}

	quarterEnds := lastPerPeriod(inWindow, func(d time.Time) string {
		return fmt.Sprintf("%04d-Q%d", d.Year(), (int(d.Month())-1)/3+1)
	})
	for _, d := range quarterEnds {
		add(d)
	}

	for k := 1; k <= 5; k++ {
		target := asof.AddDate(-k, 0, 0)
		if d, ok := lastOnOrBefore(inWindow, target); ok {
			add(d)
		}
	}

	add(inWindow[len(inWindow)-1])

	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sortTimes(out)
	return out
}

// lastPerPeriod groups dates (assumed ascending) by a period key and
// returns the last date seen for each distinct key, in encounter order.
func lastPerPeriod(dates []time.Time, keyOf func(time.Time) string) []time.Time {
	var order []string
	last := make(map[string]time.Time)
	for _, d := range dates {
		k := keyOf(d)
		if _, ok := last[k]; !ok {
			order = append(order, k)
		}
		last[k] = d
	}
	out := make([]time.Time, len(order))
	for i, k := range order {
		out[i] = last[k]
	}
	return out
}

// lastOnOrBefore returns the latest date in dates (assumed ascending)
// that is <= target.
func lastOnOrBefore(dates []time.Time, target time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, d := range dates {
		if !d.After(target) {
			best = d
			found = true
		} else {
			break
		}
	}
	return best, found
}

func sortTimes(dates []time.Time) {
	for i := 1; i < len(dates); i++ {
		for j := i; j > 0 && dates[j].Before(dates[j-1]); j-- {
			dates[j], dates[j-1] = dates[j-1], dates[j]
		}
	}
}
