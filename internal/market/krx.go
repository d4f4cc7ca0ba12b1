package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// krxResponse is the common envelope KRX's statistics JSON endpoint wraps
// every result set in.
type krxResponse struct {
	OutBlock1 []map[string]string `json:"OutBlock_1"`
}

// fetchKRX POSTs a KRX "bld" statistics query and returns each result row
// as a raw string-keyed map, deferring typed parsing to the caller via
// resolveColumn. KRX rejects non-browser requests, so this bypasses the
// shared retrying client and sets the browser header set directly,
// matching the teacher's FetchMarketCaps.
func (c *Client) fetchKRX(ctx context.Context, form url.Values) ([]map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.krxBase, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create KRX request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Origin", "http://data.krx.co.kr")
	req.Header.Set("Referer", "http://data.krx.co.kr/contents/MDC/MDI/mdiLoader/index.cmd?menuId=MDC0201020101")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("KRX request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read KRX response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, fmt.Errorf("KRX returned status %d: %s", resp.StatusCode, preview)
	}

	var out krxResponse
	if err := json.Unmarshal(body, &out); err != nil {
		preview := string(body)
		if len(preview) > 500 {
			preview = preview[:500]
		}
		c.logger.WithField("response_preview", preview).Error("failed to parse KRX response")
		return nil, fmt.Errorf("decode KRX response: %w", err)
	}

	return out.OutBlock1, nil
}
