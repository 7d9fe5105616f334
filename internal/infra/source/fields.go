package source

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Path walks nested objects and returns the value at the end, or nil.
func Path(v any, keys ...string) any {
	for _, k := range keys {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[k]
	}
	return v
}

// Object returns the object at path, or nil.
func Object(v any, keys ...string) map[string]any {
	m, _ := Path(v, keys...).(map[string]any)
	return m
}

// List returns the array at path, or nil.
func List(v any, keys ...string) []any {
	l, _ := Path(v, keys...).([]any)
	return l
}

// String returns the first non-empty key rendered as a string.
func String(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := toString(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// Int returns an integer field that may be encoded as number or string.
func Int(m map[string]any, key string) (int64, bool) {
	s := toString(m[key])
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

// Decimal parses an amount field without going through float64.
func Decimal(m map[string]any, keys ...string) (decimal.Decimal, error) {
	s := String(m, keys...)
	if s == "" {
		return decimal.Zero, fmt.Errorf("missing amount %v", keys)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// BaseUnits converts an integer base-unit string (wei, sun, satoshi) to a
// decimal amount with the given number of decimals.
func BaseUnits(raw string, decimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid base units %q: %w", raw, err)
	}
	return Trim(d.Shift(-decimals)), nil
}

// Trim drops trailing fractional zeros so the amount carries only the
// digits it needs. Amounts parsed from venue strings keep theirs.
func Trim(d decimal.Decimal) decimal.Decimal {
	return decimal.RequireFromString(d.String())
}

// UnixTime interprets epoch values in seconds or milliseconds.
func UnixTime(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	if v < 1e12 {
		return time.Unix(v, 0).UTC()
	}
	return time.UnixMilli(v).UTC()
}

// Time reads the first present epoch field.
func Time(m map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		if n, ok := Int(m, k); ok && n > 0 {
			return UnixTime(n)
		}
	}
	return time.Time{}
}

// Millis renders t for APIs that take epoch milliseconds.
func Millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// SameAddress compares addresses case-insensitively.
func SameAddress(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
