package query

import (
	"net/url"
	"strconv"
	"strings"
)

// Params is the untrusted input of a list request. Values are strings,
// []string, or operator objects (map[string]any) such as {"gte": "10"}.
type Params map[string]any

var reservedKeys = map[string]struct{}{
	"search":   {},
	"sort":     {},
	"page":     {},
	"limit":    {},
	"select":   {},
	"populate": {},
}

// ParamsFromValues decodes an HTTP query string. Bracketed keys become
// operator objects (price[gte]=10) and empty brackets or repeated keys become
// lists (tags[]=a&tags[]=b).
func ParamsFromValues(values url.Values) Params {
	params := make(Params, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		base, sub, bracketed := splitBracket(key)
		if !bracketed {
			switch existing := params[key].(type) {
			case map[string]any:
			case []string:
				params[key] = append(existing, vals...)
			default:
				params[key] = collapse(vals)
			}
			continue
		}
		if sub == "" {
			existing, _ := params[base].([]string)
			params[base] = append(existing, vals...)
			continue
		}
		obj, ok := params[base].(map[string]any)
		if !ok {
			obj = map[string]any{}
			params[base] = obj
		}
		obj[sub] = collapse(vals)
	}
	return params
}

func splitBracket(key string) (base, sub string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, "", false
	}
	inner := key[open+1 : len(key)-1]
	if strings.ContainsAny(inner, "[]") {
		return key, "", false
	}
	return key[:open], inner, true
}

func collapse(vals []string) any {
	if len(vals) == 1 {
		return vals[0]
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// String returns the first string value stored under key.
func (p Params) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case []string:
		if len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
	}
	return ""
}

// Int parses key as an integer, returning 0 for missing or malformed input.
func (p Params) Int(key string) int {
	n, err := strconv.Atoi(p.String(key))
	if err != nil {
		return 0
	}
	return n
}

// List splits a comma separated or repeated parameter.
func (p Params) List(key string) []string {
	var raw []string
	switch v := p[key].(type) {
	case string:
		raw = []string{v}
	case []string:
		raw = v
	}
	var out []string
	for _, chunk := range raw {
		for _, part := range strings.Split(chunk, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
