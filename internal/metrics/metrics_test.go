package metrics

import (
	"testing"
	"time"

	"github.com/wonny/snapshot-engine/internal/types"
)

func datesFrom(start string, n int) []string {
	t, _ := time.Parse("2006-01-02", start)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = t.AddDate(0, 0, i).Format("2006-01-02")
	}
	return out
}

func pricesForTicker(ticker string, n int, startClose float64) []types.PriceRow {
	dates := datesFrom("2024-01-01", n)
	rows := make([]types.PriceRow, n)
	for i := 0; i < n; i++ {
		close := startClose + float64(i)
		value := 1000.0
		rows[i] = types.PriceRow{Date: dates[i], Ticker: ticker, Close: types.F64(close), Value: types.F64(value)}
	}
	return rows
}

func TestBuildSnapshot_ShortHistoryYieldsNullRollingFields(t *testing.T) {
	prices := pricesForTicker("005930", 10, 100)
	asof := prices[len(prices)-1].Date
	rows := BuildSnapshot(prices, nil, nil, nil, asof)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.SMA20 != nil {
		t.Fatalf("SMA20 = %v, want nil (only 10 obs < 20)", *row.SMA20)
	}
	if row.High52w != nil {
		t.Fatalf("High52w = %v, want nil", *row.High52w)
	}
	if row.Ret1y != nil {
		t.Fatalf("Ret1y = %v, want nil", *row.Ret1y)
	}
	if row.CalcVersion != CalcVersion {
		t.Fatalf("CalcVersion = %q, want %q", row.CalcVersion, CalcVersion)
	}
}

func TestBuildSnapshot_FullHistoryProducesNonNullAggregates(t *testing.T) {
	prices := pricesForTicker("005930", 260, 100)
	asof := prices[len(prices)-1].Date
	rows := BuildSnapshot(prices, nil, nil, nil, asof)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	for name, v := range map[string]*float64{
		"SMA20": row.SMA20, "SMA50": row.SMA50, "SMA200": row.SMA200,
		"High52w": row.High52w, "Low52w": row.Low52w,
	} {
		if v == nil {
			t.Fatalf("%s = nil, want non-null with 260 observations", name)
		}
	}
}

func TestBuildSnapshot_NoRowForTickerNotLandingOnAsof(t *testing.T) {
	prices := pricesForTicker("005930", 10, 100)
	rows := BuildSnapshot(prices, nil, nil, nil, "2099-01-01")
	if len(rows) != 0 {
		t.Fatalf("got %d rows, want 0 (no ticker's last row is on asof)", len(rows))
	}
}

func TestBuildSnapshot_ROEProxyNullWhenBPSNotPositive(t *testing.T) {
	prices := pricesForTicker("005930", 5, 100)
	asof := prices[len(prices)-1].Date
	daily := []types.DailyJoinRow{{Ticker: "005930", EPS: types.F64(500), BPS: types.F64(0)}}
	rows := BuildSnapshot(prices, daily, nil, nil, asof)
	if rows[0].ROEProxy != nil {
		t.Fatalf("ROEProxy = %v, want nil when bps <= 0", *rows[0].ROEProxy)
	}

	daily2 := []types.DailyJoinRow{{Ticker: "005930", EPS: types.F64(500), BPS: types.F64(2500)}}
	rows2 := BuildSnapshot(prices, daily2, nil, nil, asof)
	if rows2[0].ROEProxy == nil || *rows2[0].ROEProxy != 0.2 {
		t.Fatalf("ROEProxy = %v, want 0.2", rows2[0].ROEProxy)
	}
}

func TestBuildSnapshot_Pos52wNullWhenHighEqualsLow(t *testing.T) {
	dates := datesFrom("2024-01-01", 252)
	rows := make([]types.PriceRow, len(dates))
	for i, d := range dates {
		rows[i] = types.PriceRow{Date: d, Ticker: "FLAT", Close: types.F64(100), Value: types.F64(10)}
	}
	asof := dates[len(dates)-1]
	out := BuildSnapshot(rows, nil, nil, nil, asof)
	if out[0].Pos52w != nil {
		t.Fatalf("Pos52w = %v, want nil when high_52w == low_52w", *out[0].Pos52w)
	}
}

func TestEPSGrowth_RequiresBothEndpointsPositive(t *testing.T) {
	points := []epsPoint{
		{date: "2019-01-01", eps: -10},
		{date: "2024-01-01", eps: 100},
	}
	cagr, _ := epsGrowth(points, "2024-01-01")
	if cagr != nil {
		t.Fatalf("eps_cagr_5y = %v, want nil (5y-ago eps is negative)", *cagr)
	}

	points2 := []epsPoint{
		{date: "2019-01-01", eps: 50},
		{date: "2024-01-01", eps: 100},
	}
	cagr2, _ := epsGrowth(points2, "2024-01-01")
	if cagr2 == nil {
		t.Fatal("eps_cagr_5y = nil, want non-null when both endpoints are positive")
	}
}
