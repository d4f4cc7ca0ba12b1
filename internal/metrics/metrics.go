// Package metrics computes the wide per-ticker snapshot row from a
// windowed price history, a daily cap+fundamental join, and a
// multi-year fundamentals history.
package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/snapshot-engine/internal/types"
)

// CalcVersion is stamped on every produced SnapshotRow; bump it whenever
// the derived-field formulas below change.
const CalcVersion = "v1.1"

const (
	windowSMA20  = 20
	windowSMA50  = 50
	windowSMA200 = 200
	window52w    = 252
	windowVol20d = 20
)

var returnWindows = []struct {
	field string
	n     int
}{
	{"ret_1w", 5},
	{"ret_1m", 21},
	{"ret_3m", 63},
	{"ret_6m", 126},
	{"ret_1y", 252},
}

// BuildSnapshot implements §4.4: per-ticker rolling aggregates, left-join
// with the daily cap+fundamental row, derived ratios, and EPS growth
// from the fundamentals history. Only tickers whose last price-window
// row falls exactly on asofDate produce a row.
func BuildSnapshot(
	priceWindow []types.PriceRow,
	daily []types.DailyJoinRow,
	fundHist []types.FundamentalRow,
	tickers []types.Ticker,
	asofDate string,
) []types.SnapshotRow {
	if len(priceWindow) == 0 {
		return nil
	}

	order, grouped := groupByTicker(priceWindow)
	dailyByTicker := indexDaily(daily)
	tickerMeta := indexTickers(tickers)
	fundByTicker := groupFundamentals(fundHist)

	var rows []types.SnapshotRow
	for _, ticker := range order {
		rows2 := computeTickerRow(ticker, grouped[ticker], dailyByTicker[ticker], fundByTicker[ticker], tickerMeta[ticker], asofDate)
		if rows2 != nil {
			rows = append(rows, *rows2)
		}
	}
	return rows
}

func groupByTicker(rows []types.PriceRow) ([]string, map[string][]types.PriceRow) {
	grouped := make(map[string][]types.PriceRow)
	var order []string
	for _, r := range rows {
		if _, seen := grouped[r.Ticker]; !seen {
			order = append(order, r.Ticker)
		}
		grouped[r.Ticker] = append(grouped[r.Ticker], r)
	}
	for ticker := range grouped {
		rows := grouped[ticker]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
		grouped[ticker] = rows
	}
	return order, grouped
}

func indexDaily(rows []types.DailyJoinRow) map[string]types.DailyJoinRow {
	m := make(map[string]types.DailyJoinRow, len(rows))
	for _, r := range rows {
		m[r.Ticker] = r
	}
	return m
}

func indexTickers(tickers []types.Ticker) map[string]types.Ticker {
	m := make(map[string]types.Ticker, len(tickers))
	for _, t := range tickers {
		m[t.Ticker] = t
	}
	return m
}

// groupFundamentals returns, per ticker, the (date, eps) pairs with
// non-null eps sorted ascending by date — the series epsAt walks.
func groupFundamentals(rows []types.FundamentalRow) map[string][]epsPoint {
	m := make(map[string][]epsPoint)
	for _, r := range rows {
		if r.EPS == nil {
			continue
		}
		m[r.Ticker] = append(m[r.Ticker], epsPoint{date: r.Date, eps: *r.EPS})
	}
	for ticker := range m {
		pts := m[ticker]
		sort.Slice(pts, func(i, j int) bool { return pts[i].date < pts[j].date })
		m[ticker] = pts
	}
	return m
}

type epsPoint struct {
	date string
	eps  float64
}

// epsAt returns the EPS from the latest point with date <= t, or nil.
func epsAt(points []epsPoint, t string) *float64 {
	var best *float64
	for _, p := range points {
		if p.date <= t {
			v := p.eps
			best = &v
		} else {
			break
		}
	}
	return best
}

func computeTickerRow(ticker string, prices []types.PriceRow, daily types.DailyJoinRow, fundPoints []epsPoint, meta types.Ticker, asofDate string) *types.SnapshotRow {
	if len(prices) == 0 {
		return nil
	}
	last := prices[len(prices)-1]
	if last.Date != asofDate {
		return nil
	}

	closes := make([]*float64, len(prices))
	values := make([]*float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
		values[i] = p.Value
	}
	retDaily := pctChangeSeries(closes, 1)

	sma20 := rollingMean(closes, windowSMA20)
	sma50 := rollingMean(closes, windowSMA50)
	sma200 := rollingMean(closes, windowSMA200)
	avgValue20d := rollingMean(values, windowVol20d)
	high52w := rollingMax(closes, window52w)
	low52w := rollingMin(closes, window52w)
	vol20d := rollingStdev(retDaily, windowVol20d)

	row := types.SnapshotRow{
		AsofDate: asofDate,
		Ticker:   ticker,
		Name:     meta.Name,
		Market:   meta.Market,

		Close:       last.Close,
		MCap:        daily.MCap,
		AvgValue20d: avgValue20d,

		PER: daily.PER,
		PBR: daily.PBR,
		Div: daily.Div,
		DPS: daily.DPS,
		EPS: daily.EPS,
		BPS: daily.BPS,

		SMA20:  sma20,
		SMA50:  sma50,
		SMA200: sma200,

		High52w: high52w,
		Low52w:  low52w,
		Vol20d:  vol20d,

		CalcVersion: CalcVersion,
	}

	for _, rw := range returnWindows {
		ret := pctChangeAt(closes, rw.n)
		switch rw.field {
		case "ret_1w":
			row.Ret1w = ret
		case "ret_1m":
			row.Ret1m = ret
		case "ret_3m":
			row.Ret3m = ret
		case "ret_6m":
			row.Ret6m = ret
		case "ret_1y":
			row.Ret1y = ret
		}
	}

	applyDerivedFields(&row)

	cagr, yoy := epsGrowth(fundPoints, asofDate)
	row.EPSCagr5y = cagr
	row.EPSYoYQ = yoy

	return &row
}

// applyDerivedFields computes roe_proxy, eps_positive, dist_sma*,
// pos_52w, near_52w_high_ratio, turnover_20d from already-populated
// fields on row.
func applyDerivedFields(row *types.SnapshotRow) {
	if row.BPS != nil && *row.BPS > 0 && row.EPS != nil {
		row.ROEProxy = types.F64(*row.EPS / *row.BPS)
	}
	row.EPSPositive = row.EPS != nil && *row.EPS > 0

	row.DistSMA20 = distFromSMA(row.Close, row.SMA20)
	row.DistSMA50 = distFromSMA(row.Close, row.SMA50)
	row.DistSMA200 = distFromSMA(row.Close, row.SMA200)

	if row.High52w != nil && row.Low52w != nil && row.Close != nil {
		denom := *row.High52w - *row.Low52w
		if denom > 0 {
			row.Pos52w = types.F64((*row.Close - *row.Low52w) / denom)
		}
		if *row.High52w > 0 {
			row.Near52wHighRatio = types.F64(*row.Close / *row.High52w)
		}
	}

	if row.AvgValue20d != nil && row.MCap != nil && *row.MCap != 0 {
		row.Turnover20d = types.F64(*row.AvgValue20d / *row.MCap)
	}
}

func distFromSMA(close, sma *float64) *float64 {
	if close == nil || sma == nil || *sma == 0 {
		return nil
	}
	return types.F64(*close / *sma - 1)
}

// epsGrowth implements §4.4's eps_cagr_5y and eps_yoy_q using
// latest-on-or-before EPS lookups over the fundamentals history.
func epsGrowth(points []epsPoint, asofDate string) (*float64, *float64) {
	asof, err := time.Parse("2006-01-02", asofDate)
	if err != nil {
		return nil, nil
	}

	epsNow := epsAt(points, asofDate)
	eps5yAgo := epsAt(points, asof.AddDate(-5, 0, 0).Format("2006-01-02"))

	var cagr *float64
	if epsNow != nil && eps5yAgo != nil && *epsNow > 0 && *eps5yAgo > 0 {
		v := math.Pow(*epsNow / *eps5yAgo, 1.0/5.0) - 1
		cagr = types.F64(v)
	}

	qEnd := quarterEnd(asof)
	qPrev := qEnd.AddDate(-1, 0, 0)
	epsQ := epsAt(points, qEnd.Format("2006-01-02"))
	epsQPrev := epsAt(points, qPrev.Format("2006-01-02"))

	var yoy *float64
	if epsQ != nil && epsQPrev != nil && *epsQPrev > 0 {
		yoy = types.F64(*epsQ / *epsQPrev - 1)
	}

	return cagr, yoy
}

// quarterEnd returns the last calendar day of the quarter containing t.
func quarterEnd(t time.Time) time.Time {
	quarterMonth := ((int(t.Month())-1)/3)*3 + 3
	firstOfNextMonth := time.Date(t.Year(), time.Month(quarterMonth)+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNextMonth.AddDate(0, 0, -1)
}
