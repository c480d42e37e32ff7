// Package query turns untrusted list parameters into a validated,
// backend-neutral Query that stores translate into their native form.
package query

import "math"

// Operator is a comparison understood by every store translator.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNe  Operator = "ne"
	OpIn  Operator = "in"
	OpGte Operator = "gte"
	OpGt  Operator = "gt"
	OpLte Operator = "lte"
	OpLt  Operator = "lt"
)

// comparisons are the operators a client may spell as field[op].
var comparisons = map[string]Operator{
	"gte": OpGte,
	"gt":  OpGt,
	"lte": OpLte,
	"lt":  OpLt,
}

// Condition is a single predicate. For OpIn, Value is a []any.
type Condition struct {
	Field string
	Op    Operator
	Value any
	Kind  Kind
}

// SortField orders by Field, descending when Desc is set.
type SortField struct {
	Field string
	Desc  bool
}

// Query is the materialised result of a Builder.
type Query struct {
	Conditions []Condition
	Sort       []SortField
	// Fields is an inclusion list. When empty, Exclude applies.
	Fields       []string
	Exclude      []string
	Page         int
	Limit        int
	StrictPaging bool
}

// Skip is the number of documents before the requested page.
func (q Query) Skip() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// Paginated reports whether Limit should be applied.
func (q Query) Paginated() bool {
	return q.Limit > 0
}
