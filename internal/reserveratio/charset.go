package reserveratio

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

// decodeBody tries, in order, the declared Content-Type charset, UTF-8,
// EUC-KR, CP949, falling back to UTF-8 with replacement characters, per
// §4.3. CP949 is a strict superset of EUC-KR; x/text's EUCKR decoder
// accepts the common CP949 extensions used by Korean finance portals, so
// it serves both attempts.
func decodeBody(body []byte, contentType string) string {
	if charset := declaredCharset(contentType); charset != "" {
		if s, ok := tryDecode(body, charset); ok {
			return s
		}
	}

	if utf8.Valid(body) {
		return string(body)
	}

	if s, ok := tryDecode(body, "euc-kr"); ok {
		return s
	}
	if s, ok := tryDecode(body, "cp949"); ok {
		return s
	}

	decoder := unicode.UTF8.NewDecoder()
	out, _ := decoder.Bytes(body)
	if out == nil {
		out = body
	}
	return strings.ToValidUTF8(string(out), "�")
}

func declaredCharset(contentType string) string {
	lower := strings.ToLower(contentType)
	idx := strings.Index(lower, "charset=")
	if idx < 0 {
		return ""
	}
	charset := lower[idx+len("charset="):]
	if semi := strings.IndexByte(charset, ';'); semi >= 0 {
		charset = charset[:semi]
	}
	return strings.TrimSpace(charset)
}

func tryDecode(body []byte, charset string) (string, bool) {
	switch charset {
	case "utf-8", "utf8":
		if utf8.Valid(body) {
			return string(body), true
		}
		return "", false
	case "euc-kr", "euckr", "cp949", "ms949":
		out, err := korean.EUCKR.NewDecoder().Bytes(body)
		if err != nil {
			return "", false
		}
		return string(out), true
	default:
		return "", false
	}
}
