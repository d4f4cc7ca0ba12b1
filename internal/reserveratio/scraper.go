// Package reserveratio concurrently scrapes the latest reserve-ratio
// figure for a list of tickers from a third-party financial report page,
// preserving input order in its output despite concurrent completion.
package reserveratio

import (
	"context"
	"sync"

	"github.com/wonny/snapshot-engine/pkg/httputil"
	"github.com/wonny/snapshot-engine/pkg/logger"
	snapredis "github.com/wonny/snapshot-engine/pkg/redis"
)

// urlTemplate is the HTML report page fetched per ticker, per §6.
const urlTemplate = "https://navercomp.wisereport.co.kr/v2/company/cF1001.aspx?cmp_cd=%s&fin_typ=0&freq_typ=Y"

// Config controls the scraper's concurrency, sampling, and rate-limiting
// behavior.
type Config struct {
	MaxWorkers    int
	SamplePath    string
	ProgressEvery int
	RateLimit     snapredis.RateLimitConfig
}

// DefaultConfig matches §5's stated defaults.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:    8,
		SamplePath:    "reserve_ratio_sample.html",
		ProgressEvery: 50,
		RateLimit:     snapredis.NaverRateLimit,
	}
}

// Scraper fetches and parses the reserve-ratio figure for each input
// ticker, under a bounded worker pool.
// ⭐ SSOT: 유보율 크롤링은 이 스크레이퍼에서만
type Scraper struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	limiter    *snapredis.RateLimiter
	cfg        Config

	sampleMu    sync.Mutex
	sampleSaved bool

	// fetchFn defaults to (*Scraper).fetchHTML; tests substitute a
	// deterministic stand-in to exercise the worker pool's ordering and
	// sampling behavior without real network I/O.
	fetchFn func(ctx context.Context, ticker string) (string, error)
}

// New builds a Scraper. limiter may be nil, in which case no rate
// limiting is applied (equivalent to a disabled Redis client).
func New(httpClient *httputil.Client, log *logger.Logger, limiter *snapredis.RateLimiter, cfg Config) *Scraper {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultConfig().MaxWorkers
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultConfig().ProgressEvery
	}
	s := &Scraper{
		httpClient: httpClient,
		logger:     log,
		limiter:    limiter,
		cfg:        cfg,
	}
	s.fetchFn = s.fetchHTML
	return s
}
