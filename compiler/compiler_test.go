package compiler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisjab/sieve/criteria"
	"github.com/thisisjab/sieve/fieldmap"
	"github.com/thisisjab/sieve/query"
)

func params(q *query.Query) map[int]any {
	out := make(map[int]any)
	for _, p := range q.Parameters() {
		out[p.Position] = p.Value
	}
	return out
}

func TestConvertEmptyCriteria(t *testing.T) {
	c := criteria.Criteria{}.
		WithOrders(criteria.OrderBy("name", criteria.Asc), criteria.OrderBy("id", criteria.Desc)).
		WithOffset(20).
		WithLimit(5)

	q, err := Convert(query.New("users"), fieldmap.Map{"id": "u.id"}, c)
	require.NoError(t, err)

	assert.Nil(t, q.Where())
	assert.Equal(t, []query.OrderBy{{Field: "name", Direction: query.Asc}, {Field: "u.id", Direction: query.Desc}}, q.Orders())

	offset, ok := q.FirstResult()
	assert.True(t, ok)
	assert.Equal(t, 20, offset)

	limit, ok := q.MaxResults()
	assert.True(t, ok)
	assert.Equal(t, 5, limit)

	assert.Zero(t, q.ParameterCount())
}

func TestConvertWithoutPagination(t *testing.T) {
	q, err := Convert(query.New("users"), nil, criteria.Criteria{})
	require.NoError(t, err)

	_, ok := q.FirstResult()
	assert.False(t, ok)
	_, ok = q.MaxResults()
	assert.False(t, ok)
	assert.Empty(t, q.Orders())
}

func TestConvertEndToEnd(t *testing.T) {
	c := criteria.New(criteria.Cond("status", criteria.Equal, "active")).
		WithOrders(criteria.OrderBy("createdAt", criteria.Desc)).
		WithLimit(10)

	q, err := Convert(query.New("users"), fieldmap.Map{}, c)
	require.NoError(t, err)

	assert.Equal(t, query.Eq("status", 1), q.Where())
	assert.Equal(t, "status = ?1", q.Where().String())
	assert.Equal(t, map[int]any{1: "active"}, params(q))
	assert.Equal(t, []query.OrderBy{{Field: "createdAt", Direction: query.Desc}}, q.Orders())

	limit, ok := q.MaxResults()
	assert.True(t, ok)
	assert.Equal(t, 10, limit)

	_, ok = q.FirstResult()
	assert.False(t, ok)
}

func TestConvertSingleFilterIsNotWrapped(t *testing.T) {
	filter := criteria.AnyOf(
		criteria.Cond("a", criteria.Equal, 1),
		criteria.Cond("b", criteria.Equal, 2),
	)

	single, err := Convert(query.New("t"), nil, criteria.New(filter))
	require.NoError(t, err)

	alone, err := New(query.New("t"), nil).compileFilter(filter)
	require.NoError(t, err)

	assert.Equal(t, alone, single.Where())
}

func TestConvertManyFiltersEqualsImplicitAnd(t *testing.T) {
	filters := []criteria.Filter{
		criteria.Cond("a", criteria.Equal, 1),
		criteria.AnyOf(criteria.Cond("b", criteria.Gt, 2), criteria.Cond("c", criteria.Lt, 3)),
		criteria.Cond("d", criteria.In, []any{4, 5}),
	}

	many, err := Convert(query.New("t"), nil, criteria.New(filters...))
	require.NoError(t, err)

	explicit, err := Convert(query.New("t"), nil, criteria.New(criteria.AllOf(filters...)))
	require.NoError(t, err)

	assert.Equal(t, explicit.Where(), many.Where())
	assert.Equal(t, params(explicit), params(many))
	assert.Equal(t, "a = ?1 AND (b > ?2 OR c < ?3) AND d IN (?4)", many.Where().String())
}

func TestConvertNested(t *testing.T) {
	filter := criteria.AnyOf(
		criteria.Cond("age", criteria.Gt, 18),
		criteria.AllOf(
			criteria.Cond("country", criteria.Equal, "ES"),
			criteria.Cond("verified", criteria.Equal, true),
		),
	)

	q, err := Convert(query.New("users"), nil, criteria.New(filter))
	require.NoError(t, err)

	expected := query.OrX(
		query.Gt("age", 1),
		query.AndX(query.Eq("country", 2), query.Eq("verified", 3)),
	)
	assert.Equal(t, expected, q.Where())
	assert.Equal(t, "age > ?1 OR (country = ?2 AND verified = ?3)", q.Where().String())
	assert.Equal(t, map[int]any{1: 18, 2: "ES", 3: true}, params(q))
}

func TestConvertParameterNumberingStartsAfterExisting(t *testing.T) {
	base := query.New("users").
		AndWhere(query.Eq("tenant_id", 1)).
		SetParameter(1, "acme").
		SetParameter(2, "unused")

	c := criteria.New(
		criteria.Cond("a", criteria.Equal, "x"),
		criteria.AnyOf(
			criteria.Cond("b", criteria.Equal, "y"),
			criteria.AllOf(criteria.Cond("c", criteria.Equal, "z"), criteria.Cond("d", criteria.Equal, "w")),
		),
	)

	q, err := Convert(base, nil, c)
	require.NoError(t, err)

	assert.Equal(t, map[int]any{1: "acme", 2: "unused", 3: "x", 4: "y", 5: "z", 6: "w"}, params(q))
	assert.Equal(t, "tenant_id = ?1 AND (a = ?3 AND (b = ?4 OR (c = ?5 AND d = ?6)))", q.Where().String())
}

func TestConvertDeepTree(t *testing.T) {
	const depth = 500

	var f criteria.Filter = criteria.Cond("leaf", criteria.Equal, depth)
	for i := depth - 1; i >= 0; i-- {
		f = criteria.AllOf(criteria.Cond(fmt.Sprintf("f%d", i), criteria.Equal, i), f)
	}

	q, err := Convert(query.New("t"), nil, criteria.New(f))
	require.NoError(t, err)

	ps := q.Parameters()
	require.Len(t, ps, depth+1)
	for i, p := range ps {
		assert.Equal(t, i+1, p.Position)
		assert.Equal(t, i, p.Value)
	}
}

func TestConvertPatternValues(t *testing.T) {
	tests := []struct {
		op       criteria.Operator
		value    any
		expected any
	}{
		{criteria.Contains, "x", "%x%"},
		{criteria.StartsWith, "x", "x%"},
		{criteria.EndsWith, "x", "%x"},
		{criteria.Contains, 42, "%42%"},
		{criteria.Equal, "x", "x"},
		{criteria.NotEqual, "x", "x"},
		{criteria.Gt, 1, 1},
		{criteria.Gte, 1.5, 1.5},
		{criteria.Lt, "b", "b"},
		{criteria.Lte, "b", "b"},
		{criteria.In, []any{"a", "b"}, []any{"a", "b"}},
		{criteria.NotIn, []int{1, 2}, []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %v", tt.op, tt.value), func(t *testing.T) {
			q, err := Convert(query.New("t"), nil, criteria.New(criteria.Cond("f", tt.op, tt.value)))
			require.NoError(t, err)
			assert.Equal(t, map[int]any{1: tt.expected}, params(q))
		})
	}
}

func TestConvertOperatorMapping(t *testing.T) {
	tests := map[criteria.Operator]query.Expr{
		criteria.Equal:      query.Eq("col", 1),
		criteria.NotEqual:   query.Neq("col", 1),
		criteria.Gt:         query.Gt("col", 1),
		criteria.Gte:        query.Gte("col", 1),
		criteria.Lt:         query.Lt("col", 1),
		criteria.Lte:        query.Lte("col", 1),
		criteria.In:         query.In("col", 1),
		criteria.NotIn:      query.NotIn("col", 1),
		criteria.StartsWith: query.LikeOf("col", 1),
		criteria.EndsWith:   query.LikeOf("col", 1),
		criteria.Contains:   query.LikeOf("col", 1),
	}

	for op, expected := range tests {
		t.Run(string(op), func(t *testing.T) {
			q, err := Convert(query.New("t"), fieldmap.Map{"field": "col"}, criteria.New(criteria.Cond("field", op, "v")))
			require.NoError(t, err)
			assert.Equal(t, expected, q.Where())
		})
	}
}

func TestConvertNullEquality(t *testing.T) {
	fields := fieldmap.Map{"deletedAt": "deleted_at"}

	q, err := Convert(query.New("t"), fields, criteria.New(criteria.Cond("deletedAt", criteria.Equal, nil)))
	require.NoError(t, err)
	assert.Equal(t, query.IsNull("deleted_at"), q.Where())
	assert.Zero(t, q.ParameterCount())

	q, err = Convert(query.New("t"), fields, criteria.New(criteria.Cond("deletedAt", criteria.NotEqual, nil)))
	require.NoError(t, err)
	assert.Equal(t, query.IsNotNull("deleted_at"), q.Where())
	assert.Zero(t, q.ParameterCount())
}

func TestConvertNullExpansionAlwaysUsesAnd(t *testing.T) {
	fields := fieldmap.Map{"groupB": "g.b", "groupA": "g.a", "other": "h.c"}

	q, err := Convert(query.New("t"), fields, criteria.New(criteria.Cond("g", criteria.Equal, nil)))
	require.NoError(t, err)
	assert.Equal(t, query.AndX(query.IsNull("g.a"), query.IsNull("g.b")), q.Where())
	assert.Equal(t, "g.a IS NULL AND g.b IS NULL", q.Where().String())

	q, err = Convert(query.New("t"), fields, criteria.New(criteria.Cond("g", criteria.NotEqual, nil)))
	require.NoError(t, err)
	assert.Equal(t, query.AndX(query.IsNotNull("g.a"), query.IsNotNull("g.b")), q.Where())
	assert.Zero(t, q.ParameterCount())
}

func TestConvertNullExpansionSingleMember(t *testing.T) {
	fields := fieldmap.Map{"ownerId": "owner.id"}

	q, err := Convert(query.New("t"), fields, criteria.New(criteria.Cond("owner", criteria.Equal, nil)))
	require.NoError(t, err)
	assert.Equal(t, query.IsNull("owner.id"), q.Where())
}

func TestConvertNullExpansionResolvesMembers(t *testing.T) {
	fields := fieldmap.Map{"ga": "g.a", "gb": "g.b", "g.a": "legacy_ga"}

	q, err := Convert(query.New("t"), fields, criteria.New(criteria.Cond("g", criteria.Equal, nil)))
	require.NoError(t, err)
	assert.Equal(t, query.AndX(query.IsNull("legacy_ga"), query.IsNull("g.b")), q.Where())
	assert.Equal(t, "legacy_ga IS NULL AND g.b IS NULL", q.Where().String())
}

func TestConvertNullExpansionOnlyForNullValues(t *testing.T) {
	fields := fieldmap.Map{"groupA": "g.a", "groupB": "g.b"}

	q, err := Convert(query.New("t"), fields, criteria.New(criteria.Cond("g", criteria.Equal, "x")))
	require.NoError(t, err)
	assert.Equal(t, query.Eq("g", 1), q.Where())
}

func TestConvertNullWithOtherOperatorFails(t *testing.T) {
	for _, op := range []criteria.Operator{
		criteria.Gt, criteria.Gte, criteria.Lt, criteria.Lte,
		criteria.In, criteria.NotIn, criteria.StartsWith, criteria.EndsWith, criteria.Contains,
	} {
		t.Run(string(op), func(t *testing.T) {
			base := query.New("t")
			c := New(base, nil)

			q, err := c.Convert(criteria.New(criteria.Cond("age", op, nil)))
			require.ErrorIs(t, err, ErrNullValueNotApplicable)
			assert.Nil(t, q)
			assert.Zero(t, c.q.ParameterCount())

			var ce *ConditionError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "age", ce.Field)
			assert.Equal(t, op, ce.Operator)
		})
	}
}

func TestConvertUnknownOperator(t *testing.T) {
	_, err := Convert(query.New("t"), nil, criteria.New(criteria.Cond("age", "LIKE", 3)))
	require.ErrorIs(t, err, ErrUnknownOperator)
	assert.Contains(t, err.Error(), "age")
	assert.Contains(t, err.Error(), "LIKE")
}

type rogueFilter struct {
	criteria.Condition
}

func TestConvertUnknownFilterKind(t *testing.T) {
	_, err := Convert(query.New("t"), nil, criteria.New(rogueFilter{}))
	require.ErrorIs(t, err, ErrUnknownFilterKind)

	_, err = Convert(query.New("t"), nil, criteria.New(criteria.Cond("a", criteria.Equal, 1), nil))
	require.ErrorIs(t, err, ErrUnknownFilterKind)
}

func TestConvertTypedNilFilters(t *testing.T) {
	for _, f := range []criteria.Filter{
		(*criteria.Condition)(nil),
		(*criteria.And)(nil),
		(*criteria.Or)(nil),
		criteria.AnyOf((*criteria.And)(nil)),
	} {
		t.Run(fmt.Sprintf("%T", f), func(t *testing.T) {
			var q *query.Query
			var err error
			require.NotPanics(t, func() {
				q, err = Convert(query.New("t"), nil, criteria.New(f))
			})
			require.ErrorIs(t, err, ErrUnknownFilterKind)
			assert.Nil(t, q)
		})
	}
}

func TestConvertErrorInNestedFilterAborts(t *testing.T) {
	c := criteria.New(criteria.AnyOf(
		criteria.Cond("a", criteria.Equal, 1),
		criteria.AllOf(criteria.Cond("b", criteria.Gt, nil)),
	))

	q, err := Convert(query.New("t"), nil, c)
	require.ErrorIs(t, err, ErrNullValueNotApplicable)
	assert.Nil(t, q)
}

func TestConvertPointerFilters(t *testing.T) {
	c := criteria.New(&criteria.Or{Filters: []criteria.Filter{
		&criteria.Condition{Field: "a", Operator: criteria.Equal, Value: 1},
		&criteria.And{Filters: []criteria.Filter{criteria.Cond("b", criteria.Equal, 2)}},
	}})

	q, err := Convert(query.New("t"), nil, c)
	require.NoError(t, err)
	assert.Equal(t, "a = ?1 OR b = ?2", q.Where().String())
}

func TestConvertSingleChildGroup(t *testing.T) {
	q, err := Convert(query.New("t"), nil, criteria.New(criteria.AllOf(criteria.Cond("a", criteria.Equal, 1))))
	require.NoError(t, err)
	assert.Equal(t, query.AndX(query.Eq("a", 1)), q.Where())
	assert.Equal(t, "a = ?1", q.Where().String())
}

func TestConvertSingleChildGroupKeepsInnerParentheses(t *testing.T) {
	c := criteria.New(
		criteria.Cond("x", criteria.Equal, 1),
		criteria.AllOf(criteria.AnyOf(criteria.Cond("a", criteria.Equal, 2), criteria.Cond("b", criteria.Equal, 3))),
	)

	q, err := Convert(query.New("t"), nil, c)
	require.NoError(t, err)
	assert.Equal(t, "x = ?1 AND (a = ?2 OR b = ?3)", q.Where().String())
	assert.Equal(t, map[int]any{1: 1, 2: 2, 3: 3}, params(q))
}

func TestConvertDoesNotTouchCallerQuery(t *testing.T) {
	base := query.New("users").AndWhere(query.IsNull("deleted_at")).AddOrderBy("id", query.Asc)

	c := criteria.New(criteria.Cond("status", criteria.Equal, "active")).
		WithOrders(criteria.OrderBy("name", criteria.Asc)).
		WithOffset(3).
		WithLimit(4)

	first, err := Convert(base, nil, c)
	require.NoError(t, err)

	second, err := Convert(base, nil, criteria.New(criteria.Cond("status", criteria.Equal, "blocked")))
	require.NoError(t, err)

	assert.Equal(t, query.IsNull("deleted_at"), base.Where())
	assert.Zero(t, base.ParameterCount())
	assert.Len(t, base.Orders(), 1)
	_, ok := base.MaxResults()
	assert.False(t, ok)

	assert.Equal(t, "deleted_at IS NULL AND status = ?1", first.Where().String())
	assert.Equal(t, "deleted_at IS NULL AND status = ?1", second.Where().String())
	assert.Equal(t, map[int]any{1: "active"}, params(first))
	assert.Equal(t, map[int]any{1: "blocked"}, params(second))
	assert.Len(t, first.Orders(), 2)
	assert.Len(t, second.Orders(), 1)
}

func TestConvertOrdersUseFieldMap(t *testing.T) {
	fields := fieldmap.Map{"createdAt": "u.created_at"}
	c := criteria.Criteria{}.WithOrders(
		criteria.OrderBy("createdAt", criteria.Desc),
		criteria.OrderBy("name", criteria.Asc),
	)

	q, err := Convert(query.New("users"), fields, c)
	require.NoError(t, err)
	assert.Equal(t, []query.OrderBy{
		{Field: "u.created_at", Direction: query.Desc},
		{Field: "name", Direction: query.Asc},
	}, q.Orders())
}
