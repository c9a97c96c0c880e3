// Package compiler turns criteria into a query.Query.
//
// A Compiler owns a clone of the query it was created with. It compiles the
// criteria's filter tree into the query's WHERE clause, binding every value
// as a positional parameter numbered after the parameters already present,
// then applies ordering and pagination. Logical field names go through a
// fieldmap.Map on the way.
//
//	q, err := compiler.New(query.New("users"), fieldmap.Map{"createdAt": "created_at"}).
//	    Convert(criteria.New(criteria.Cond("status", criteria.Equal, "active")).
//	        WithOrders(criteria.OrderBy("createdAt", criteria.Desc)).
//	        WithLimit(10))
//	// q.String() == "SELECT * FROM users WHERE status = ?1 ORDER BY created_at DESC"
package compiler

import (
	"fmt"

	"github.com/thisisjab/sieve/criteria"
	"github.com/thisisjab/sieve/fieldmap"
	"github.com/thisisjab/sieve/query"
)

// Compiler compiles one Criteria into a query. It is meant to be used for a
// single Convert call and then discarded.
type Compiler struct {
	q      *query.Query
	fields fieldmap.Map
	params *paramAllocator
}

// New returns a compiler working on a clone of q; q itself is never modified.
func New(q *query.Query, fields fieldmap.Map) *Compiler {
	owned := q.Clone()

	return &Compiler{
		q:      owned,
		fields: fields,
		params: newParamAllocator(owned),
	}
}

// Convert is shorthand for New(q, fields).Convert(c).
func Convert(q *query.Query, fields fieldmap.Map, c criteria.Criteria) (*query.Query, error) {
	return New(q, fields).Convert(c)
}

// Convert compiles c into the compiler's query and returns it.
// On error no query is returned.
func (c *Compiler) Convert(cr criteria.Criteria) (*query.Query, error) {
	var root criteria.Filter

	switch len(cr.Filters) {
	case 0:
	case 1:
		root = cr.Filters[0]
	default:
		root = criteria.And{Filters: cr.Filters}
	}

	if root != nil {
		expr, err := c.compileFilter(root)
		if err != nil {
			return nil, err
		}
		c.q.AndWhere(expr)
	}

	for _, o := range cr.Orders {
		dir := query.Asc
		if o.Direction == criteria.Desc {
			dir = query.Desc
		}
		c.q.AddOrderBy(c.fields.Resolve(o.Field), dir)
	}

	if cr.Offset != nil {
		c.q.SetFirstResult(*cr.Offset)
	}

	if cr.Limit != nil {
		c.q.SetMaxResults(*cr.Limit)
	}

	return c.q, nil
}

// compileFilter recursively translates a filter node into an expression.
func (c *Compiler) compileFilter(f criteria.Filter) (query.Expr, error) {
	switch n := f.(type) {
	case criteria.Condition:
		return c.compileCondition(n)
	case *criteria.Condition:
		if n == nil {
			break
		}
		return c.compileCondition(*n)
	case criteria.And:
		return c.compileGroup(n.Filters, query.AndX)
	case *criteria.And:
		if n == nil {
			break
		}
		return c.compileGroup(n.Filters, query.AndX)
	case criteria.Or:
		return c.compileGroup(n.Filters, query.OrX)
	case *criteria.Or:
		if n == nil {
			break
		}
		return c.compileGroup(n.Filters, query.OrX)
	}

	return nil, fmt.Errorf("%w: %T", ErrUnknownFilterKind, f)
}

// compileGroup compiles children in order and combines them.
func (c *Compiler) compileGroup(children []criteria.Filter, combine func(...query.Expr) query.Expr) (query.Expr, error) {
	exprs := make([]query.Expr, 0, len(children))
	for _, child := range children {
		e, err := c.compileFilter(child)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}

	return combine(exprs...), nil
}
