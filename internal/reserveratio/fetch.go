package reserveratio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// fetchRetries and fetchBaseDelay mirror §5's "sleep × 2^attempt" policy
// with the scraper's own 3-attempt default.
const (
	fetchRetries   = 3
	fetchBaseDelay = 500 * time.Millisecond
)

// blockedMarkers are substrings that indicate the portal served a
// block/throttle page instead of the report, checked before parsing
// begins so a 200 OK block page is classified as a transient failure
// rather than falling through to no_data/parse_error.
var blockedMarkers = []string{
	"비정상적인 접근",
	"접근이 차단",
	"일시적으로 제한",
	"too many requests",
	"access denied",
	"blocked",
}

func isBlockedResponse(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range blockedMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// fetchHTML retrieves and decodes the report page for one ticker, with
// retry/backoff on transport failure and on blocked responses.
func (s *Scraper) fetchHTML(ctx context.Context, ticker string) (string, error) {
	url := fmt.Sprintf(urlTemplate, ticker)

	var lastErr error
	delay := fetchBaseDelay
	for attempt := 0; attempt < fetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		html, err := s.doFetch(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		if isBlockedResponse(html) {
			lastErr = fmt.Errorf("blocked response for ticker %s", ticker)
			s.logger.WithField("ticker", ticker).Warn("reserve ratio fetch blocked, retrying")
			continue
		}
		return html, nil
	}
	return "", fmt.Errorf("fetch failed for ticker %s after %d attempts: %w", ticker, fetchRetries, lastErr)
}

func (s *Scraper) doFetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Referer", "https://navercomp.wisereport.co.kr/v2/company/c1010001.aspx")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := s.httpClient.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("server error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return decodeBody(body, resp.Header.Get("Content-Type")), nil
}
