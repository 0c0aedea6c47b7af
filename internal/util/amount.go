package util

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber reads a plain decimal string such as "12.5", " 250 " or "1e3".
// Grouping, decimal commas and currency marks are rejected, as is anything
// that is not a finite number.
func ParseNumber(input string) (float64, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return parsed, true
}

// FormatPrice renders a price the way the storefront shows it: shortest
// decimal form, no trailing zeros.
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
