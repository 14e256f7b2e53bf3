package query

// Predicate is a node of the filter tree produced by Parse and accepted by
// Builder.Where. Field names are API names; they are resolved to columns when
// the query is compiled.
type Predicate interface {
	predicate()
}

// Condition compares one field against a value.
type Condition struct {
	Field string
	Op    Operator
	Value any
	// Raw keeps the uncoerced input so text columns can compare against the
	// literal string the caller sent.
	Raw any
}

// And matches when every child matches.
type And []Predicate

// Or matches when any child matches.
type Or []Predicate

// Search matches Term against Fields. Text selects indexed full-text search
// when the database supports it; otherwise a case-insensitive substring match
// is used.
type Search struct {
	Fields []string
	Term   string
	Text   bool
}

func (Condition) predicate() {}
func (And) predicate()       {}
func (Or) predicate()        {}
func (Search) predicate()    {}

// Eq is shorthand for a trusted equality condition.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: OpEq, Value: value, Raw: value}
}

// Cond builds a trusted condition with an explicit operator.
func Cond(field string, op Operator, value any) Condition {
	return Condition{Field: field, Op: op, Value: value, Raw: value}
}

// Combine ANDs the non-nil predicates, collapsing trivial cases.
func Combine(preds ...Predicate) Predicate {
	out := make(And, 0, len(preds))
	for _, p := range preds {
		switch v := p.(type) {
		case nil:
			continue
		case And:
			if len(v) == 0 {
				continue
			}
		case Or:
			if len(v) == 0 {
				continue
			}
		}
		out = append(out, p)
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}
