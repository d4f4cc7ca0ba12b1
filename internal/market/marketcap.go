package market

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/snapshot-engine/internal/types"
)

// MarketCap fetches market-cap and shares-outstanding for every ticker on
// one trading day, across both KOSPI and KOSDAQ.
func (c *Client) MarketCap(ctx context.Context, date time.Time) ([]types.CapRow, error) {
	var rows []types.CapRow
	for _, mktID := range []string{"STK", "KSQ"} {
		marketRows, err := c.marketCapForMarket(ctx, date, mktID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, marketRows...)
	}
	return rows, nil
}

func (c *Client) marketCapForMarket(ctx context.Context, date time.Time, mktID string) ([]types.CapRow, error) {
	form := url.Values{
		"bld":         {"dbms/MDC/STAT/standard/MDCSTAT01501"},
		"locale":      {"ko_KR"},
		"mktId":       {mktID},
		"trdDd":       {date.Format("20060102")},
		"share":       {"1"},
		"money":       {"1"},
		"csvxls_isNo": {"false"},
	}

	raw, err := c.fetchKRX(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("market cap fetch (%s): %w", mktID, err)
	}

	dateStr := date.Format("2006-01-02")
	rows := make([]types.CapRow, 0, len(raw))
	for _, r := range raw {
		tickerKey, err := resolveColumn(r, targetTicker)
		if err != nil {
			return nil, err
		}
		mcapKey, err := resolveColumn(r, targetMCap)
		if err != nil {
			return nil, err
		}
		sharesKey, err := resolveColumn(r, targetShares)
		if err != nil {
			return nil, err
		}

		ticker := r[tickerKey]
		if ticker == "" {
			continue
		}

		row := types.CapRow{
			Date:   dateStr,
			Ticker: ticker,
			MCap:   parseKRXNumber(r[mcapKey]),
			Shares: parseKRXNumber(r[sharesKey]),
		}
		if volKey, err := resolveColumn(r, targetVolume); err == nil {
			row.Volume = parseKRXNumber(r[volKey])
		}
		if valKey, err := resolveColumn(r, targetValue); err == nil {
			row.Value = parseKRXNumber(r[valKey])
		}
		rows = append(rows, row)
	}
	return rows, nil
}
