package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprString(t *testing.T) {
	tests := []struct {
		name     string
		expr     Expr
		expected string
	}{
		{"eq", Eq("a", 1), "a = ?1"},
		{"neq", Neq("a", 2), "a <> ?2"},
		{"gt", Gt("a", 3), "a > ?3"},
		{"gte", Gte("a", 4), "a >= ?4"},
		{"lt", Lt("a", 5), "a < ?5"},
		{"lte", Lte("a", 6), "a <= ?6"},
		{"in", In("a", 7), "a IN (?7)"},
		{"not in", NotIn("a", 8), "a NOT IN (?8)"},
		{"like", LikeOf("a", 9), "a LIKE ?9"},
		{"is null", IsNull("a"), "a IS NULL"},
		{"is not null", IsNotNull("a"), "a IS NOT NULL"},
		{"single and", AndX(Eq("a", 1)), "a = ?1"},
		{"flat and", AndX(Eq("a", 1), Eq("b", 2)), "a = ?1 AND b = ?2"},
		{"or of and", OrX(Gt("age", 1), AndX(Eq("c", 2), Eq("v", 3))), "age > ?1 OR (c = ?2 AND v = ?3)"},
		{"nested single is not wrapped", OrX(AndX(Eq("a", 1)), Eq("b", 2)), "a = ?1 OR b = ?2"},
		{"single and around or", AndX(Eq("x", 1), AndX(OrX(Eq("a", 2), Eq("b", 3)))), "x = ?1 AND (a = ?2 OR b = ?3)"},
		{"deep single groups", OrX(Eq("x", 1), OrX(AndX(AndX(Eq("a", 2), Eq("b", 3))))), "x = ?1 OR (a = ?2 AND b = ?3)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.expr.String())
		})
	}
}

func TestArity(t *testing.T) {
	assert.Equal(t, 1, Arity(Eq("a", 1)))
	assert.Equal(t, 0, Arity(AndX()))
	assert.Equal(t, 2, Arity(OrX(Eq("a", 1), Eq("b", 2))))
	assert.Equal(t, 2, Arity(AndX(OrX(Eq("a", 1), Eq("b", 2)))))
	assert.Equal(t, 1, Arity(OrX(AndX(Eq("a", 1)))))
}

func TestCombinatorsCopyInput(t *testing.T) {
	exprs := []Expr{Eq("a", 1), Eq("b", 2)}
	and := AndX(exprs...)
	exprs[0] = Eq("z", 9)

	assert.Equal(t, "a = ?1 AND b = ?2", and.String())
}

func TestAndWhere(t *testing.T) {
	q := New("t")
	assert.Nil(t, q.Where())

	q.AndWhere(Eq("a", 1))
	assert.Equal(t, Eq("a", 1), q.Where())

	q.AndWhere(Eq("b", 2))
	assert.Equal(t, And{Exprs: []Expr{Eq("a", 1), Eq("b", 2)}}, q.Where())

	q.AndWhere(Eq("c", 3))
	assert.Equal(t, "a = ?1 AND b = ?2 AND c = ?3", q.Where().String())
}

func TestParameters(t *testing.T) {
	q := New("t").SetParameter(3, "c").SetParameter(1, "a").SetParameter(2, "b")

	assert.Equal(t, 3, q.ParameterCount())
	assert.Equal(t, []Parameter{{1, "a"}, {2, "b"}, {3, "c"}}, q.Parameters())

	v, ok := q.Parameter(2)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = q.Parameter(4)
	assert.False(t, ok)

	q.SetParameter(2, "B")
	assert.Equal(t, 3, q.ParameterCount())
	v, _ = q.Parameter(2)
	assert.Equal(t, "B", v)
}

func TestCloneIsIndependent(t *testing.T) {
	base := New("t", "id", "name").
		AndWhere(Eq("a", 1)).
		AndWhere(Eq("b", 2)).
		AddOrderBy("id", Asc).
		SetFirstResult(5).
		SetMaxResults(10).
		SetParameter(1, "x").
		SetParameter(2, "y")

	c := base.Clone()
	c.AndWhere(Eq("c", 3)).
		AddOrderBy("name", Desc).
		SetFirstResult(0).
		SetMaxResults(1).
		SetParameter(3, "z")

	assert.Equal(t, "a = ?1 AND b = ?2", base.Where().String())
	assert.Equal(t, []OrderBy{{"id", Asc}}, base.Orders())
	offset, _ := base.FirstResult()
	limit, _ := base.MaxResults()
	assert.Equal(t, 5, offset)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 2, base.ParameterCount())

	assert.Equal(t, "a = ?1 AND b = ?2 AND c = ?3", c.Where().String())
	assert.Len(t, c.Orders(), 2)
	assert.Equal(t, 3, c.ParameterCount())
	assert.Equal(t, []string{"id", "name"}, c.Columns())
}

func TestCloneOfZeroQuery(t *testing.T) {
	var q Query
	c := q.Clone()
	c.SetParameter(1, "a")

	assert.Equal(t, 1, c.ParameterCount())
	assert.Zero(t, q.ParameterCount())
}

func TestQueryString(t *testing.T) {
	q := New("users").
		AndWhere(OrX(Gt("age", 1), Eq("country", 2))).
		AddOrderBy("created_at", Desc).
		AddOrderBy("id", Asc).
		SetMaxResults(10)

	assert.Equal(t, "SELECT * FROM users WHERE age > ?1 OR country = ?2 ORDER BY created_at DESC, id ASC", q.String())
	assert.Equal(t, "SELECT id, name FROM users", New("users", "id", "name").String())
}
