package market

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/snapshot-engine/internal/types"
)

// fundamentalSubstituteDays is how many prior calendar days
// Fundamental retries before giving up when the target date yields no
// rows, per §4.2.
const fundamentalSubstituteDays = 7

// Fundamental fetches PER/PBR/EPS/BPS/DIV/DPS for every ticker as of a
// given date. If the target date returns no rows (a holiday slipped into
// the anchor-date list, or the source simply hasn't indexed it yet), it
// walks backward up to fundamentalSubstituteDays and stamps the rows with
// the date that actually produced data.
func (c *Client) Fundamental(ctx context.Context, date time.Time) ([]types.FundamentalRow, error) {
	candidate := date
	for attempt := 0; attempt <= fundamentalSubstituteDays; attempt++ {
		rows, err := c.fundamentalAt(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			return rows, nil
		}
		candidate = candidate.AddDate(0, 0, -1)
	}
	return nil, fmt.Errorf("fundamental: no data within %d days before %s", fundamentalSubstituteDays, date.Format("2006-01-02"))
}

func (c *Client) fundamentalAt(ctx context.Context, date time.Time) ([]types.FundamentalRow, error) {
	form := url.Values{
		"bld":         {"dbms/MDC/STAT/standard/MDCSTAT03501"},
		"locale":      {"ko_KR"},
		"mktId":       {"ALL"},
		"trdDd":       {date.Format("20060102")},
		"csvxls_isNo": {"false"},
	}

	raw, err := c.fetchKRX(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("fundamental fetch: %w", err)
	}

	dateStr := date.Format("2006-01-02")
	rows := make([]types.FundamentalRow, 0, len(raw))
	for _, r := range raw {
		tickerKey, err := resolveColumn(r, targetTicker)
		if err != nil {
			return nil, err
		}
		ticker := r[tickerKey]
		if ticker == "" {
			continue
		}

		row := types.FundamentalRow{Date: dateStr, Ticker: ticker}
		if k, err := resolveColumn(r, targetPER); err == nil {
			row.PER = parseKRXNumber(r[k])
		}
		if k, err := resolveColumn(r, targetPBR); err == nil {
			row.PBR = parseKRXNumber(r[k])
		}
		if k, err := resolveColumn(r, targetEPS); err == nil {
			row.EPS = parseKRXNumber(r[k])
		}
		if k, err := resolveColumn(r, targetBPS); err == nil {
			row.BPS = parseKRXNumber(r[k])
		}
		if k, err := resolveColumn(r, targetDiv); err == nil {
			row.Div = parseKRXNumber(r[k])
		}
		if k, err := resolveColumn(r, targetDPS); err == nil {
			row.DPS = parseKRXNumber(r[k])
		}
		rows = append(rows, row)
	}
	return rows, nil
}
