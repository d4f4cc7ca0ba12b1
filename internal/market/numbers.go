package market

import (
	"strconv"
	"strings"
)

// parseKRXNumber parses KRX's comma-grouped number format ("1,234,567" or
// "-") into a float64, returning nil for blanks/dashes.
func parseKRXNumber(s string) *float64 {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &n
}
