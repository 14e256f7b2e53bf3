package query

// Operator is a comparison recognised inside a filter operator object such as
// price[gte]=10.
type Operator string

const (
	OpEq     Operator = "eq"
	OpNe     Operator = "ne"
	OpGt     Operator = "gt"
	OpGte    Operator = "gte"
	OpLt     Operator = "lt"
	OpLte    Operator = "lte"
	OpIn     Operator = "in"
	OpNin    Operator = "nin"
	OpRegex  Operator = "regex"
	OpExists Operator = "exists"
)

var operators = map[string]Operator{
	"eq":     OpEq,
	"ne":     OpNe,
	"gt":     OpGt,
	"gte":    OpGte,
	"lt":     OpLt,
	"lte":    OpLte,
	"in":     OpIn,
	"nin":    OpNin,
	"regex":  OpRegex,
	"exists": OpExists,
}

// ParseOperator maps a raw sub-key onto the closed operator set.
func ParseOperator(raw string) (Operator, bool) {
	op, ok := operators[raw]
	return op, ok
}

func (o Operator) takesList() bool {
	return o == OpIn || o == OpNin
}
