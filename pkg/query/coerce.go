package query

import (
	"math"
	"strconv"
	"strings"
)

// Coerce converts a raw query-string value into a typed value. Strings become
// bool, nil, int64, float64, or a list of coerced parts when they contain a
// comma; everything else is returned unchanged, so Coerce is idempotent.
func Coerce(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return coerceString(s, true)
}

func coerceString(s string, splitLists bool) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if n, ok := parseNumber(s); ok {
		return n
	}
	if splitLists && strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			out = append(out, coerceString(strings.TrimSpace(part), false))
		}
		return out
	}
	return s
}

func parseNumber(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	// Reject forms like "0x1p4" that ParseFloat accepts but users never mean.
	if strings.ContainsAny(s, "xXpP_") {
		return nil, false
	}
	return f, true
}

// coerceList turns a raw operand into a list for in/nin.
func coerceList(v any) []any {
	switch x := v.(type) {
	case []string:
		out := make([]any, 0, len(x))
		for _, s := range x {
			out = append(out, Coerce(s))
		}
		return flatten(out)
	case []any:
		return flatten(x)
	}
	switch c := Coerce(v).(type) {
	case []any:
		return c
	default:
		return []any{c}
	}
}

func flatten(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if nested, ok := v.([]any); ok {
			out = append(out, nested...)
			continue
		}
		out = append(out, v)
	}
	return out
}
