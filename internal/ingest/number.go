package ingest

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseNumber reads a locale-formatted cell ("1 234,56", "\"12\"") and
// falls back to 0 on anything it cannot read.
//
// Minus signs are kept wherever they appear; a misplaced one makes the
// value unparseable and therefore 0.
func ParseNumber(s string) float64 {
	if s == "" {
		return 0
	}
	s = strings.Map(func(r rune) rune {
		if r == '"' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.Replace(s, ",", ".", 1)
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}
