// Package market wraps the external KRX/Naver market-data sources behind a
// single client offering normalized tickers, OHLCV, market-cap, and
// fundamentals reads, plus business-day detection.
package market

import (
	"golang.org/x/time/rate"

	"github.com/wonny/snapshot-engine/pkg/config"
	"github.com/wonny/snapshot-engine/pkg/httputil"
	"github.com/wonny/snapshot-engine/pkg/logger"
)

// referenceTicker is probed to detect whether a calendar date was a
// trading day (both recentBusinessDay and tradingDates rely on it having
// traded every session since listing).
const referenceTicker = "005930"

// defaultKRXDataURL and defaultNaverBaseURL are used when config.MarketConfig
// leaves the corresponding field empty (e.g. in tests that build a Client
// directly).
const (
	defaultKRXDataURL   = "http://data.krx.co.kr/comm/bldAttendant/getJsonData.cmd"
	defaultNaverBaseURL = "https://fchart.stock.naver.com"
)

// perTickerRPS caps the rate of outbound Naver OHLCV requests across the
// per-ticker backfill loop, distinct from the Redis-backed limiter the
// reserve-ratio scraper uses for its own worker pool.
const perTickerRPS = 5

// Client handles communication with KRX (via its public statistics JSON
// endpoint) and Naver Finance (for per-ticker OHLCV history).
// ⭐ SSOT: 시세/시가총액/펀더멘털 조회는 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	krxBase    string
	naverBase  string
	ohlcvLimit *rate.Limiter
}

// Retries is an exported attempt count that none of the client's own
// loops read: HTTP retries come from the shared httputil client's
// configuration, and fundamental date substitution is bounded by
// fundamentalSubstituteDays.
const Retries = 3

// NewClient builds a market-data client around the shared retrying HTTP
// client. cfg may be nil, in which case the default KRX/Naver base URLs
// are used.
func NewClient(httpClient *httputil.Client, log *logger.Logger, cfg *config.MarketConfig) *Client {
	krxBase := defaultKRXDataURL
	naverBase := defaultNaverBaseURL
	if cfg != nil {
		if cfg.KRXBaseURL != "" {
			krxBase = cfg.KRXBaseURL
		}
		if cfg.NaverBaseURL != "" {
			naverBase = cfg.NaverBaseURL
		}
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		krxBase:    krxBase,
		naverBase:  naverBase,
		ohlcvLimit: rate.NewLimiter(rate.Limit(perTickerRPS), perTickerRPS),
	}
}
