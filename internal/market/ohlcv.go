package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/snapshot-engine/internal/types"
)

// requiredOHLCVColumns is the ordered set §4.2 calls "the required five
// (o/h/l/c/v)"; a source frame missing any of them is a fatal schema
// error, never a per-row skip.
var requiredOHLCVColumns = []columnTarget{targetOpen, targetHigh, targetLow, targetClose, targetVolume}

// OHLCV fetches daily price history for one ticker over [from, to] and
// returns normalized rows. Naver's chart feed returns a fixed five/six
// column positional array; resolveColumn is applied against a synthesized
// column map so a response that lost a column (truncated array) fails
// with the same descriptive schema error a keyed KRX source would.
func (c *Client) OHLCV(ctx context.Context, from, to time.Time, ticker string) ([]types.PriceRow, error) {
	if err := c.ohlcvLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("ohlcv rate limit wait for %s: %w", ticker, err)
	}

	fromStr := from.Format("20060102")
	toStr := to.Format("20060102")

	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.naverBase, ticker, fromStr, toStr,
	)

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("ohlcv request for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ohlcv request for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ohlcv response for %s: %w", ticker, err)
	}

	rows, err := parsePriceResponse(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse ohlcv response for %s: %w", ticker, err)
	}

	if err := checkOHLCVSchema(rows); err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].Ticker = ticker
	}
	return rows, nil
}

// checkOHLCVSchema re-derives a column-presence map from the parsed rows
// and resolves it against the required target list, so a systematically
// truncated frame (e.g. a source that dropped the volume field) is
// reported as a schema error naming the target and what was observed,
// per §7, rather than silently producing rows with zeroed fields.
func checkOHLCVSchema(rows []types.PriceRow) error {
	if len(rows) == 0 {
		return nil
	}
	observed := map[string]string{
		"open": "open", "high": "high", "low": "low", "close": "close", "volume": "volume",
	}
	sample := rows[0]
	if sample.Open == nil {
		delete(observed, "open")
	}
	if sample.High == nil {
		delete(observed, "high")
	}
	if sample.Low == nil {
		delete(observed, "low")
	}
	if sample.Close == nil {
		delete(observed, "close")
	}
	if sample.Volume == nil {
		delete(observed, "volume")
	}
	for _, target := range requiredOHLCVColumns {
		if _, err := resolveColumn(observed, target); err != nil {
			return err
		}
	}
	return nil
}

func parsePriceResponse(body string) ([]types.PriceRow, error) {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		rows, err := parsePriceJSON(rawData)
		if err != nil {
			return nil, err
		}
		// parsePriceJSON silently drops any row shorter than the
		// required date+OHLCV width. If every data row was dropped
		// that way, this is a systematically truncated frame (a
		// source that lost a trailing column), not an empty one, and
		// must fail with the same named schema error a keyed source
		// would raise rather than returning 0 rows with no error.
		if len(rows) == 0 {
			if err := detectPositionalTruncation(rawData); err != nil {
				return nil, err
			}
		}
		return rows, nil
	}
	return parsePriceRegex(body)
}

// detectPositionalTruncation inspects the raw positional rows before
// parsePriceJSON's per-row filtering discards short ones. Naver's columns
// are positional (date, open, high, low, close, volume), so a row width
// under 6 means every column at or past the shortfall is absent; this
// reports that via resolveColumn against requiredOHLCVColumns, naming the
// missing target and the columns actually observed, per §7. A rawData
// with no data rows at all (just a header, or nothing) is a legitimately
// empty range and returns nil.
func detectPositionalTruncation(rawData [][]interface{}) error {
	fields := []string{"open", "high", "low", "close", "volume"}
	for i, row := range rawData {
		if i == 0 {
			continue
		}
		if len(row) >= 6 {
			continue
		}
		present := len(row) - 1
		if present < 0 {
			present = 0
		}
		observed := make(map[string]string, present)
		for idx, f := range fields {
			if idx < present {
				observed[f] = f
			}
		}
		for _, target := range requiredOHLCVColumns {
			if _, err := resolveColumn(observed, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func parsePriceJSON(rawData [][]interface{}) ([]types.PriceRow, error) {
	var rows []types.PriceRow
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		dateStr = strings.Trim(dateStr, "\"")
		if len(dateStr) == 8 {
			dateStr = dateStr[:4] + "-" + dateStr[4:6] + "-" + dateStr[6:8]
		}
		if _, err := time.Parse("2006-01-02", dateStr); err != nil {
			continue
		}

		open := toFloat(row[1])
		high := toFloat(row[2])
		low := toFloat(row[3])
		closeP := toFloat(row[4])
		volume := toFloat(row[5])

		rows = append(rows, types.PriceRow{
			Date:   dateStr,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeP,
			Volume: volume,
		})
	}
	return rows, nil
}

var priceRegex = regexp.MustCompile(`\["(\d{8})",\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+)\]`)

func parsePriceRegex(body string) ([]types.PriceRow, error) {
	matches := priceRegex.FindAllStringSubmatch(body, -1)

	var rows []types.PriceRow
	for _, m := range matches {
		if len(m) < 7 {
			continue
		}
		dateStr := m[1][:4] + "-" + m[1][4:6] + "-" + m[1][6:8]
		if _, err := time.Parse("2006-01-02", dateStr); err != nil {
			continue
		}

		rows = append(rows, types.PriceRow{
			Date:   dateStr,
			Open:   toFloat(m[2]),
			High:   toFloat(m[3]),
			Low:    toFloat(m[4]),
			Close:  toFloat(m[5]),
			Volume: toFloat(m[6]),
		})
	}
	return rows, nil
}

func toFloat(v interface{}) *float64 {
	switch val := v.(type) {
	case float64:
		return &val
	case int64:
		f := float64(val)
		return &f
	case int:
		f := float64(val)
		return &f
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
