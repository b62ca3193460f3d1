// Package normalize converts the heterogeneous numeric representations
// found in feed payloads (numbers, numeric strings, suffixed strings,
// nulls) into canonical arbitrary-precision decimals.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Suffix multipliers: trailing k/m/b scale the numeric prefix by
// 1e3/1e6/1e9. Case-insensitive.
var suffixExponents = map[byte]int32{
	'k': 3,
	'm': 6,
	'b': 9,
}

// Metric parses a raw feed value into a decimal. The second return is
// false when the value is missing (nil, empty, or unparseable); callers
// must distinguish missing from zero.
//
// Strings always route through a decimal parse so sub-cent prices keep
// every significant digit. Native floats are the only lossy input and
// only as precise as the feed already made them.
func Metric(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return v, true
	case json.Number:
		return parseString(v.String())
	case string:
		return parseString(v)
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	default:
		return decimal.Zero, false
	}
}

// MetricString parses a numeric string, honoring k/m/b suffixes.
func MetricString(s string) (decimal.Decimal, bool) {
	return parseString(s)
}

func parseString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	var exp int32
	last := s[len(s)-1]
	if e, ok := suffixExponents[lowerByte(last)]; ok {
		exp = e
		s = strings.TrimSpace(s[:len(s)-1])
		if s == "" {
			return decimal.Zero, false
		}
	}

	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if exp != 0 {
		d = d.Shift(exp)
	}
	return d, true
}

func lowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// FormatMoney renders a decimal as a two-decimal USD amount with
// thousands separators, for alert text.
func FormatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// FormatMoneyFloat is FormatMoney for values already held as float64.
func FormatMoneyFloat(v float64) string {
	return FormatMoney(decimal.NewFromFloat(v))
}
