package market

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// businessDayLookback is how many calendar days RecentBusinessDay walks
// back before giving up, per §4.2.
const businessDayLookback = 10

// RecentBusinessDay starts from today and walks backward at most
// businessDayLookback calendar days, probing the reference ticker's
// OHLCV for a single day; the first non-empty day wins.
func (c *Client) RecentBusinessDay(ctx context.Context) (time.Time, error) {
	candidate := time.Now()
	for i := 0; i < businessDayLookback; i++ {
		rows, err := c.OHLCV(ctx, candidate, candidate, referenceTicker)
		if err == nil && len(rows) > 0 {
			return dateOnly(candidate), nil
		}
		candidate = candidate.AddDate(0, 0, -1)
	}
	return time.Time{}, fmt.Errorf("could not determine recent business day within %d days", businessDayLookback)
}

// TradingDates enumerates the trading days in [from, to] via the
// reference ticker's OHLCV index, returning sorted unique dates.
func (c *Client) TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	rows, err := c.OHLCV(ctx, from, to, referenceTicker)
	if err != nil {
		return nil, fmt.Errorf("trading dates: %w", err)
	}

	seen := make(map[string]bool, len(rows))
	dates := make([]time.Time, 0, len(rows))
	for _, r := range rows {
		if seen[r.Date] {
			continue
		}
		seen[r.Date] = true
		d, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
