package reserveratio

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/snapshot-engine/internal/types"
)

// headerMarkers are the table-header labels that identify the reserve
// ratio row. They are tried in list order, each scanning the header cells
// in document order; the first marker that matches a cell wins, per §4.3
// step 1.
var headerMarkers = []string{"자본유보율", "유보율"}

// numberPattern extracts numeric literals, comma-grouped or not,
// optionally negative, optionally decimal.
var numberPattern = regexp.MustCompile(`-?\d+(?:,\d{3})*(?:\.\d+)?`)

// tagCellPattern pulls numbers straight out of `>NUMBER<` tag boundaries
// in raw HTML, used by the marker-proximity fallback.
var tagCellPattern = regexp.MustCompile(`>\s*(-?\d+(?:,\d{3})*(?:\.\d+)?)\s*<`)

// textMarkerPattern pulls a number following a 유보율 marker in plain
// text within a short gap, used by the marker-proximity fallback.
var textMarkerPattern = regexp.MustCompile(`유보율[^0-9-]{0,30}(-?\d+(?:,\d{3})*(?:\.\d+)?)`)

// numberRangeMax is deliberately wider than the literal "100000" named in
// the distilled spec prose: the data model explicitly allows reserve
// ratios to exceed 100000.0, and the worked example
// ("133,443.80", "120,000.00" -> 120000.0) only parses under a bound
// that admits six-figure percentages. The bound still exists to reject
// obviously unrelated magnitudes (won amounts, share counts) picked up
// by the same regex.
const (
	numberRangeMin = -1000.0
	numberRangeMax = 10000000.0
	markerWindow   = 3000
)

// parseReserveRatio implements §4.3's row-based primary algorithm with a
// marker-proximity fallback. It must be ported faithfully: the order of
// checks (no-data before numeric extraction, first-positive before
// first-value, row-based before marker scan) is a contract, not a style
// choice.
func parseReserveRatio(html string) (*float64, types.ReserveRatioOutcome) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if cells, found := findReserveRatioRow(doc); found {
			return parseCells(cells)
		}
	}

	return parseByMarkerProximity(html)
}

// findReserveRatioRow locates the table header cell matching a reserve
// ratio marker and returns the stripped text of each <td> in that row.
func findReserveRatioRow(doc *goquery.Document) ([]string, bool) {
	var matched *goquery.Selection

	for _, marker := range headerMarkers {
		doc.Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
			if strings.Contains(th.Text(), marker) {
				matched = th
				return false
			}
			return true
		})
		if matched != nil {
			break
		}
	}

	if matched == nil {
		return nil, false
	}

	row := matched.Closest("tr")
	if row.Length() == 0 {
		return nil, false
	}

	var cells []string
	row.Find("td").Each(func(_ int, td *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(td.Text()))
	})
	return cells, true
}

// parseCells applies the no-data check and the numeric extraction/range
// filter/first-positive-else-first selection to one row's cell texts.
func parseCells(cells []string) (*float64, types.ReserveRatioOutcome) {
	if allBlankOrDash(cells) {
		return nil, types.OutcomeNoData
	}

	// Reserve-ratio tables list periods oldest-to-newest left to right;
	// the latest period's column must win ties over an earlier one, so
	// cells are combined in reverse (latest first) before extraction.
	var combined strings.Builder
	for i := len(cells) - 1; i >= 0; i-- {
		combined.WriteString(cells[i])
		combined.WriteByte(' ')
	}

	values := extractValidNumbers(combined.String())
	return selectValue(values)
}

func allBlankOrDash(cells []string) bool {
	for _, c := range cells {
		trimmed := strings.TrimSpace(c)
		if trimmed != "" && trimmed != "-" {
			return false
		}
	}
	return true
}

// extractValidNumbers finds all numeric literals in text, parses them
// after stripping commas, and keeps only values within the configured
// range.
func extractValidNumbers(text string) []float64 {
	matches := numberPattern.FindAllString(text, -1)
	var values []float64
	for _, m := range matches {
		v, ok := parseNumberLiteral(m)
		if !ok {
			continue
		}
		if v < numberRangeMin || v > numberRangeMax {
			continue
		}
		values = append(values, v)
	}
	return values
}

func parseNumberLiteral(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// selectValue returns the first positive value if any, else the first
// value, else a parse_error outcome.
func selectValue(values []float64) (*float64, types.ReserveRatioOutcome) {
	if len(values) == 0 {
		return nil, types.OutcomeParseError
	}
	for _, v := range values {
		if v > 0 {
			return &v, types.OutcomeSuccess
		}
	}
	first := values[0]
	return &first, types.OutcomeSuccess
}

// parseByMarkerProximity is the fallback used when the row-based
// approach cannot locate the header at all: it scans every marker
// occurrence in the raw HTML, gathers numbers from a ±markerWindow
// character window around each using both tag-cell and text-proximity
// patterns, and applies the same range filter and first-positive
// selection across the combined matches (Open Question (b): tie-break is
// first-positive-across-all-matches, not per-occurrence).
func parseByMarkerProximity(html string) (*float64, types.ReserveRatioOutcome) {
	positions := markerPositions(html, "유보율")
	if len(positions) == 0 {
		return nil, types.OutcomeMarkerMissing
	}

	var allValues []float64
	for _, pos := range positions {
		start := pos - markerWindow
		if start < 0 {
			start = 0
		}
		end := pos + markerWindow
		if end > len(html) {
			end = len(html)
		}
		window := html[start:end]

		for _, m := range tagCellPattern.FindAllStringSubmatch(window, -1) {
			if v, ok := parseNumberLiteral(m[1]); ok && v >= numberRangeMin && v <= numberRangeMax {
				allValues = append(allValues, v)
			}
		}
		for _, m := range textMarkerPattern.FindAllStringSubmatch(window, -1) {
			if v, ok := parseNumberLiteral(m[1]); ok && v >= numberRangeMin && v <= numberRangeMax {
				allValues = append(allValues, v)
			}
		}
	}

	return selectValue(allValues)
}

func markerPositions(html, marker string) []int {
	var positions []int
	offset := 0
	for {
		idx := strings.Index(html[offset:], marker)
		if idx < 0 {
			break
		}
		positions = append(positions, offset+idx)
		offset += idx + len(marker)
	}
	return positions
}
