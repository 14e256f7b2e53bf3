package query

import (
	"sort"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/pagination"
)

// SortField is one ordering key.
type SortField struct {
	Field string
	Desc  bool
}

// Parsed is the sanitized form of a list request.
type Parsed struct {
	Filter     Predicate
	Sort       []SortField
	Pagination pagination.Options
	Select     []string
	Populate   []string
}

// Parse validates params against cfg. It never touches the database.
func Parse(cfg Config, params Params) (Parsed, error) {
	cfg = cfg.withDefaults()

	filter, err := buildFilter(cfg, params)
	if err != nil {
		return Parsed{}, err
	}
	page, err := pagination.Resolve(params.Int("page"), params.Int("limit"), cfg.DefaultLimit, cfg.MaxLimit)
	if err != nil {
		return Parsed{}, err
	}

	return Parsed{
		Filter:     filter,
		Sort:       buildSort(cfg, params.String("sort")),
		Pagination: page,
		Select:     whitelist(cfg.SelectableFields, params.List("select")),
		Populate:   populateWhitelist(cfg.PopulatableFields, params.List("populate")),
	}, nil
}

func buildFilter(cfg Config, params Params) (Predicate, error) {
	keys := make([]string, 0, len(params))
	for key := range params {
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		if !allowed(cfg.FilterableFields, key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var conds And
	for _, key := range keys {
		parsed, err := fieldConditions(key, params[key])
		if err != nil {
			return nil, err
		}
		conds = append(conds, parsed...)
	}

	var search Predicate
	if term := truncate(params.String("search"), MaxSearchLength); term != "" {
		if len(cfg.SearchFields) > 0 || cfg.EnableTextSearch {
			search = Search{Fields: cfg.SearchFields, Term: term, Text: cfg.EnableTextSearch}
		}
	}

	var fields Predicate
	if len(conds) > 0 {
		fields = conds
	}
	return Combine(fields, search), nil
}

func fieldConditions(field string, value any) ([]Predicate, error) {
	switch v := value.(type) {
	case map[string]any:
		return operatorConditions(field, v)
	case map[string]string:
		obj := make(map[string]any, len(v))
		for k, s := range v {
			obj[k] = s
		}
		return operatorConditions(field, obj)
	case []string, []any:
		list := coerceList(v)
		if len(list) > MaxListValues {
			return nil, listTooLong(field)
		}
		return []Predicate{Condition{Field: field, Op: OpEq, Value: list, Raw: v}}, nil
	case string:
		coerced := Coerce(v)
		if list, ok := coerced.([]any); ok && len(list) > MaxListValues {
			return nil, listTooLong(field)
		}
		return []Predicate{Condition{Field: field, Op: OpEq, Value: coerced, Raw: v}}, nil
	case nil, bool, int, int64, float64:
		return []Predicate{Condition{Field: field, Op: OpEq, Value: v, Raw: v}}, nil
	default:
		return nil, nil
	}
}

func operatorConditions(field string, obj map[string]any) ([]Predicate, error) {
	subs := make([]string, 0, len(obj))
	for sub := range obj {
		subs = append(subs, sub)
	}
	sort.Strings(subs)

	var out []Predicate
	for _, sub := range subs {
		op, ok := ParseOperator(sub)
		if !ok {
			continue
		}
		raw := obj[sub]
		switch {
		case op.takesList():
			list := coerceList(raw)
			if len(list) > MaxListValues {
				return nil, listTooLong(field)
			}
			out = append(out, Condition{Field: field, Op: op, Value: list, Raw: raw})
		case op == OpRegex:
			pattern, ok := raw.(string)
			if !ok || pattern == "" {
				continue
			}
			out = append(out, Condition{Field: field, Op: op, Value: pattern, Raw: raw})
		case op == OpExists:
			b, ok := Coerce(raw).(bool)
			if !ok {
				continue
			}
			out = append(out, Condition{Field: field, Op: op, Value: b, Raw: raw})
		default:
			out = append(out, Condition{Field: field, Op: op, Value: Coerce(raw), Raw: raw})
		}
	}
	return out, nil
}

func listTooLong(field string) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "too many values for %s: maximum is %d", field, MaxListValues)
}

func buildSort(cfg Config, raw string) []SortField {
	if raw == "" {
		raw = cfg.DefaultSort
	}
	seen := map[string]struct{}{}
	var out []SortField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		field := strings.TrimSpace(strings.TrimPrefix(part, "-"))
		if field == "" || !allowed(cfg.SortableFields, field) {
			continue
		}
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, SortField{Field: field, Desc: desc})
	}
	return out
}

func whitelist(list, requested []string) []string {
	var out []string
	for _, name := range requested {
		if allowed(list, name) {
			out = append(out, name)
		}
	}
	return out
}

// Relations are only expanded from user input when explicitly listed.
func populateWhitelist(list, requested []string) []string {
	if len(list) == 0 {
		return nil
	}
	return whitelist(list, requested)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
