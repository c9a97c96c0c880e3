package compiler

import "github.com/thisisjab/sieve/query"

// paramAllocator hands out increasing positional placeholders on one query,
// starting after the parameters the query already had.
type paramAllocator struct {
	q    *query.Query
	next int
}

func newParamAllocator(q *query.Query) *paramAllocator {
	return &paramAllocator{q: q, next: q.ParameterCount() + 1}
}

// allocate binds value at the next position and returns its placeholder.
func (a *paramAllocator) allocate(value any) query.Placeholder {
	p := query.Placeholder(a.next)
	a.q.SetParameter(a.next, value)
	a.next++
	return p
}
