// Package query holds the mutable query representation compiled criteria
// are written into: a WHERE expression tree, an ordering, pagination and
// a store of positional parameters.
//
// A Query is not safe for concurrent use. Compilers work on a Clone so
// that several compilations can start from the same base query.
package query

import (
	"maps"
	"slices"
	"strings"
)

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderBy is a single ordering instruction on a physical field.
type OrderBy struct {
	Field     string
	Direction Direction
}

// Parameter is a bound value at a 1-based position.
type Parameter struct {
	Position int
	Value    any
}

type Query struct {
	table       string
	columns     []string
	where       Expr
	orders      []OrderBy
	firstResult *int
	maxResults  *int
	params      map[int]any
}

// New creates a query selecting columns from table. No columns means all.
func New(table string, columns ...string) *Query {
	return &Query{
		table:   table,
		columns: columns,
		params:  make(map[int]any),
	}
}

func (q *Query) Table() string {
	return q.table
}

func (q *Query) Columns() []string {
	return slices.Clone(q.columns)
}

// Where returns the WHERE expression, or nil when there is none.
func (q *Query) Where() Expr {
	return q.where
}

// AndWhere adds e to the WHERE clause, combining it with AND with any
// expression already there.
func (q *Query) AndWhere(e Expr) *Query {
	switch w := q.where.(type) {
	case nil:
		q.where = e
	case And:
		q.where = And{Exprs: append(slices.Clone(w.Exprs), e)}
	default:
		q.where = And{Exprs: []Expr{w, e}}
	}

	return q
}

// AddOrderBy appends an ordering instruction after the existing ones.
func (q *Query) AddOrderBy(field string, direction Direction) *Query {
	q.orders = append(q.orders, OrderBy{Field: field, Direction: direction})
	return q
}

func (q *Query) Orders() []OrderBy {
	return slices.Clone(q.orders)
}

// SetFirstResult sets the number of rows to skip.
func (q *Query) SetFirstResult(n int) *Query {
	q.firstResult = &n
	return q
}

func (q *Query) FirstResult() (int, bool) {
	if q.firstResult == nil {
		return 0, false
	}
	return *q.firstResult, true
}

// SetMaxResults sets the maximum number of rows to return.
func (q *Query) SetMaxResults(n int) *Query {
	q.maxResults = &n
	return q
}

func (q *Query) MaxResults() (int, bool) {
	if q.maxResults == nil {
		return 0, false
	}
	return *q.maxResults, true
}

// SetParameter binds value at position, replacing any previous binding.
func (q *Query) SetParameter(position int, value any) *Query {
	if q.params == nil {
		q.params = make(map[int]any)
	}
	q.params[position] = value
	return q
}

// Parameter returns the value bound at position.
func (q *Query) Parameter(position int) (any, bool) {
	v, ok := q.params[position]
	return v, ok
}

// Parameters returns every binding ordered by position.
func (q *Query) Parameters() []Parameter {
	positions := slices.Sorted(maps.Keys(q.params))

	out := make([]Parameter, len(positions))
	for i, p := range positions {
		out[i] = Parameter{Position: p, Value: q.params[p]}
	}

	return out
}

func (q *Query) ParameterCount() int {
	return len(q.params)
}

// Clone returns a deep copy of q. Expressions are immutable values and
// are shared; everything a Query can mutate is copied.
func (q *Query) Clone() *Query {
	c := &Query{
		table:   q.table,
		columns: slices.Clone(q.columns),
		where:   q.where,
		orders:  slices.Clone(q.orders),
		params:  maps.Clone(q.params),
	}

	if c.params == nil {
		c.params = make(map[int]any)
	}

	if q.firstResult != nil {
		n := *q.firstResult
		c.firstResult = &n
	}

	if q.maxResults != nil {
		n := *q.maxResults
		c.maxResults = &n
	}

	return c
}

// String renders the query in a backend-neutral form with positional
// placeholders, e.g. "SELECT * FROM logs WHERE level = ?1 ORDER BY ts DESC".
// Pagination is not part of the rendering.
func (q *Query) String() string {
	var sb strings.Builder

	sb.WriteString("SELECT ")
	if len(q.columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(q.columns, ", "))
	}

	if q.table != "" {
		sb.WriteString(" FROM ")
		sb.WriteString(q.table)
	}

	if q.where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(q.where.String())
	}

	if len(q.orders) > 0 {
		parts := make([]string, len(q.orders))
		for i, o := range q.orders {
			parts[i] = o.Field + " " + string(o.Direction)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	return sb.String()
}
