package reserveratio

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonny/snapshot-engine/internal/types"
)

// maxPreviewExamples bounds the parse-issue preview logging in §4.3.
const maxPreviewExamples = 5

// previewLength is the whitespace-collapsed preview length logged per
// parse-issue example.
const previewLength = 120

var whitespaceRun = regexp.MustCompile(`\s+`)

// Run fetches and parses the reserve ratio for every input ticker using a
// bounded worker pool, and returns rows in input order restricted to
// successful extractions — the order invariant is a hard contract (§5,
// §8).
func (s *Scraper) Run(ctx context.Context, tickers []string) []types.ReserveRatioResult {
	workers := s.cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tickers) {
		workers = len(tickers)
	}
	if workers == 0 {
		return nil
	}

	taskCh := make(chan int, len(tickers))
	resultCh := make(chan types.ReserveRatioResult, len(tickers))

	for i := range tickers {
		taskCh <- i
	}
	close(taskCh)

	var previewCount int32

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range taskCh {
				select {
				case <-ctx.Done():
					resultCh <- types.ReserveRatioResult{Index: idx, Ticker: tickers[idx], Outcome: types.OutcomeFetchFail, Err: ctx.Err()}
					continue
				default:
				}
				resultCh <- s.process(ctx, idx, tickers[idx], &previewCount)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Buffer results keyed by input index so output order is restored
	// from completion order (§5 "buffer results keyed by ticker and emit
	// in input order"), logging progress as results arrive.
	buffer := make(map[int]types.ReserveRatioResult, len(tickers))
	completed := 0
	outcomeCounts := make(map[types.ReserveRatioOutcome]int)
	start := time.Now()

	for res := range resultCh {
		buffer[res.Index] = res
		completed++
		outcomeCounts[res.Outcome]++

		if completed%s.cfg.ProgressEvery == 0 {
			s.logProgress(completed, len(tickers), start, outcomeCounts)
		}
	}
	s.logProgress(len(tickers), len(tickers), start, outcomeCounts)

	indices := make([]int, 0, len(buffer))
	for idx := range buffer {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	results := make([]types.ReserveRatioResult, 0, len(indices))
	for _, idx := range indices {
		res := buffer[idx]
		if res.Outcome == types.OutcomeSuccess {
			results = append(results, res)
		}
	}
	return results
}

func (s *Scraper) logProgress(done, total int, start time.Time, counts map[types.ReserveRatioOutcome]int) {
	elapsed := time.Since(start)
	var eta time.Duration
	if done > 0 {
		eta = elapsed / time.Duration(done) * time.Duration(total-done)
	}
	s.logger.WithFields(map[string]interface{}{
		"done":     done,
		"total":    total,
		"eta":      eta,
		"outcomes": counts,
	}).Info("reserve ratio scrape progress")
}

// process fetches and parses one ticker, applying the rate limiter (if
// configured) before the request.
func (s *Scraper) process(ctx context.Context, index int, ticker string, previewCount *int32) types.ReserveRatioResult {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.cfg.RateLimit); err != nil {
			return types.ReserveRatioResult{Index: index, Ticker: ticker, Outcome: types.OutcomeFetchFail, Err: err}
		}
	}

	html, err := s.fetchFn(ctx, ticker)
	if err != nil {
		return types.ReserveRatioResult{Index: index, Ticker: ticker, Outcome: types.OutcomeFetchFail, Err: err}
	}

	value, outcome := parseReserveRatio(html)

	if outcome == types.OutcomeParseError || outcome == types.OutcomeMarkerMissing {
		s.maybeSaveSample(html)
		if atomic.AddInt32(previewCount, 1) <= maxPreviewExamples {
			s.logger.WithFields(map[string]interface{}{
				"ticker":  ticker,
				"outcome": outcome,
				"preview": collapseWhitespace(html),
			}).Warn("reserve ratio parse issue")
		}
	}

	res := types.ReserveRatioResult{Index: index, Ticker: ticker, Outcome: outcome}
	if value != nil {
		res.ReserveRatio = *value
	}
	return res
}

// maybeSaveSample persists at most one HTML sample per run, for parse
// failures only (never no_data), guarded by a mutex per §5/§9.
func (s *Scraper) maybeSaveSample(html string) {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	if s.sampleSaved || s.cfg.SamplePath == "" {
		return
	}
	if err := writeSample(s.cfg.SamplePath, html); err != nil {
		s.logger.WithError(err).Warn("failed to save reserve ratio HTML sample")
		return
	}
	s.sampleSaved = true
}

func collapseWhitespace(s string) string {
	collapsed := whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	if len(collapsed) > previewLength {
		collapsed = collapsed[:previewLength]
	}
	return collapsed
}
