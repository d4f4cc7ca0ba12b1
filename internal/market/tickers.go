package market

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/snapshot-engine/internal/types"
)

// Tickers returns the union of KOSPI and KOSDAQ constituents, all marked
// active, per §4.2.
func (c *Client) Tickers(ctx context.Context) ([]types.Ticker, error) {
	var out []types.Ticker
	for mktID, market := range map[string]types.Market{"STK": types.KOSPI, "KSQ": types.KOSDAQ} {
		rows, err := c.tickersForMarket(ctx, mktID, market)
		if err != nil {
			return nil, fmt.Errorf("tickers (%s): %w", market, err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (c *Client) tickersForMarket(ctx context.Context, mktID string, market types.Market) ([]types.Ticker, error) {
	form := url.Values{
		"bld":         {"dbms/MDC/STAT/standard/MDCSTAT01901"},
		"locale":      {"ko_KR"},
		"mktId":       {mktID},
		"csvxls_isNo": {"false"},
	}

	raw, err := c.fetchKRX(ctx, form)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rows := make([]types.Ticker, 0, len(raw))
	for _, r := range raw {
		tickerKey, err := resolveColumn(r, targetTicker)
		if err != nil {
			return nil, err
		}
		nameKey, err := resolveColumn(r, targetName)
		if err != nil {
			return nil, err
		}
		if r[tickerKey] == "" {
			continue
		}
		rows = append(rows, types.Ticker{
			Ticker:     r[tickerKey],
			Name:       r[nameKey],
			Market:     market,
			ActiveFlag: true,
			UpdatedAt:  now,
		})
	}
	return rows, nil
}
