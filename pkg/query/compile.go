package query

import (
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

type compiler struct {
	cols    *columns
	dialect string
	// fullText is true when indexed text search is available.
	fullText bool
}

func (c compiler) compile(p Predicate) (clause.Expression, bool) {
	switch v := p.(type) {
	case nil:
		return nil, false
	case Condition:
		return c.condition(v)
	case And:
		return c.group(v, false)
	case Or:
		return c.group(v, true)
	case Search:
		return c.search(v)
	}
	return nil, false
}

func (c compiler) group(children []Predicate, or bool) (clause.Expression, bool) {
	exprs := make([]clause.Expression, 0, len(children))
	for _, child := range children {
		if expr, ok := c.compile(child); ok {
			exprs = append(exprs, expr)
		}
	}
	switch {
	case len(exprs) == 0:
		return nil, false
	case len(exprs) == 1:
		return exprs[0], true
	case or:
		return clause.Or(exprs...), true
	default:
		return clause.And(exprs...), true
	}
}

func (c compiler) condition(cond Condition) (clause.Expression, bool) {
	field, ok := c.cols.field(cond.Field)
	if !ok {
		return nil, false
	}
	col := clause.Column{Table: clause.CurrentTable, Name: field.DBName}
	value := adaptValue(field, cond.Value, cond.Raw)

	switch cond.Op {
	case OpEq:
		if list, ok := value.([]any); ok {
			return clause.IN{Column: col, Values: list}, true
		}
		return clause.Eq{Column: col, Value: value}, true
	case OpNe:
		if list, ok := value.([]any); ok {
			if len(list) == 0 {
				return nil, false
			}
			return clause.Not(clause.IN{Column: col, Values: list}), true
		}
		return clause.Neq{Column: col, Value: value}, true
	case OpGt:
		return clause.Gt{Column: col, Value: value}, true
	case OpGte:
		return clause.Gte{Column: col, Value: value}, true
	case OpLt:
		return clause.Lt{Column: col, Value: value}, true
	case OpLte:
		return clause.Lte{Column: col, Value: value}, true
	case OpIn:
		list, _ := value.([]any)
		return clause.IN{Column: col, Values: list}, true
	case OpNin:
		list, _ := value.([]any)
		if len(list) == 0 {
			return nil, false
		}
		return clause.Not(clause.IN{Column: col, Values: list}), true
	case OpRegex:
		pattern := fmt.Sprint(cond.Value)
		switch c.dialect {
		case "postgres":
			return clause.Expr{SQL: "? ~ ?", Vars: []any{col, pattern}}, true
		case "sqlite":
			// No REGEXP function is registered, so the filter is ignored like an unknown column.
			return nil, false
		}
		return clause.Expr{SQL: "? REGEXP ?", Vars: []any{col, pattern}}, true
	case OpExists:
		if present, _ := cond.Value.(bool); present {
			return clause.Neq{Column: col, Value: nil}, true
		}
		return clause.Eq{Column: col, Value: nil}, true
	}
	return nil, false
}

func (c compiler) search(s Search) (clause.Expression, bool) {
	var cols []clause.Column
	for _, name := range s.Fields {
		if field, ok := c.cols.field(name); ok {
			cols = append(cols, clause.Column{Table: clause.CurrentTable, Name: field.DBName})
		}
	}
	if len(cols) == 0 {
		return nil, false
	}

	if s.Text && c.fullText {
		parts := make([]string, len(cols))
		vars := make([]any, 0, len(cols)+1)
		for i, col := range cols {
			parts[i] = "coalesce(?, '')"
			vars = append(vars, col)
		}
		vars = append(vars, s.Term)
		sql := fmt.Sprintf("to_tsvector('simple', %s) @@ plainto_tsquery('simple', ?)", strings.Join(parts, " || ' ' || "))
		return clause.Expr{SQL: sql, Vars: vars}, true
	}

	pattern := "%" + escapeLike(strings.ToLower(s.Term)) + "%"
	exprs := make([]clause.Expression, len(cols))
	for i, col := range cols {
		exprs[i] = clause.Expr{SQL: `LOWER(?) LIKE ? ESCAPE '\'`, Vars: []any{col, pattern}}
	}
	if len(exprs) == 1 {
		return exprs[0], true
	}
	return clause.Or(exprs...), true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// adaptValue compares text columns against the caller's literal input, so
// "007" stays "007" instead of the coerced 7.
func adaptValue(field *schema.Field, value, raw any) any {
	if field.DataType != schema.String || value == nil {
		return value
	}
	switch r := raw.(type) {
	case string:
		if _, isList := value.([]any); isList {
			parts := strings.Split(r, ",")
			out := make([]any, len(parts))
			for i, part := range parts {
				out[i] = strings.TrimSpace(part)
			}
			return out
		}
		return r
	case []string:
		out := make([]any, len(r))
		for i, s := range r {
			out[i] = s
		}
		return out
	}
	return value
}
