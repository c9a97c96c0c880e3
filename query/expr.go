package query

import (
	"strconv"
	"strings"
)

// Placeholder references a positional parameter bound on a Query.
type Placeholder int

// String returns the placeholder token, e.g. "?3".
func (p Placeholder) String() string {
	return "?" + strconv.Itoa(int(p))
}

// Expr is a boolean expression attached to a query's WHERE clause.
type Expr interface {
	exprNode()
	String() string
}

type CmpOp string

const (
	OpEq  CmpOp = "="
	OpNeq CmpOp = "<>"
	OpGt  CmpOp = ">"
	OpGte CmpOp = ">="
	OpLt  CmpOp = "<"
	OpLte CmpOp = "<="
)

// Comparison compares a field with a bound parameter.
type Comparison struct {
	Field string
	Op    CmpOp
	Param Placeholder
}

func (Comparison) exprNode() {}

func (c Comparison) String() string {
	return c.Field + " " + string(c.Op) + " " + c.Param.String()
}

// Membership tests a field against a bound list.
type Membership struct {
	Field   string
	Param   Placeholder
	Negated bool
}

func (Membership) exprNode() {}

func (m Membership) String() string {
	if m.Negated {
		return m.Field + " NOT IN (" + m.Param.String() + ")"
	}
	return m.Field + " IN (" + m.Param.String() + ")"
}

// Like matches a field against a bound pattern.
type Like struct {
	Field string
	Param Placeholder
}

func (Like) exprNode() {}

func (l Like) String() string {
	return l.Field + " LIKE " + l.Param.String()
}

// NullCheck tests a field for NULL. It binds no parameter.
type NullCheck struct {
	Field   string
	Negated bool
}

func (NullCheck) exprNode() {}

func (n NullCheck) String() string {
	if n.Negated {
		return n.Field + " IS NOT NULL"
	}
	return n.Field + " IS NULL"
}

// And is satisfied when every expression is.
type And struct {
	Exprs []Expr
}

func (And) exprNode() {}

func (a And) String() string {
	return joinExprs(a.Exprs, " AND ")
}

// Or is satisfied when at least one expression is.
type Or struct {
	Exprs []Expr
}

func (Or) exprNode() {}

func (o Or) String() string {
	return joinExprs(o.Exprs, " OR ")
}

// joinExprs joins the parts with sep, wrapping nested groups of more than
// one part in parentheses. A single part is rendered on its own.
func joinExprs(exprs []Expr, sep string) string {
	if len(exprs) == 1 {
		return exprs[0].String()
	}

	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
		if Arity(e) > 1 {
			parts[i] = "(" + parts[i] + ")"
		}
	}

	return strings.Join(parts, sep)
}

// Arity returns the number of parts e renders as. A group of one part
// renders as that part, so its arity is the part's own.
func Arity(e Expr) int {
	var exprs []Expr
	switch n := e.(type) {
	case And:
		exprs = n.Exprs
	case Or:
		exprs = n.Exprs
	default:
		return 1
	}

	if len(exprs) == 1 {
		return Arity(exprs[0])
	}
	return len(exprs)
}

func Eq(field string, p Placeholder) Expr  { return Comparison{Field: field, Op: OpEq, Param: p} }
func Neq(field string, p Placeholder) Expr { return Comparison{Field: field, Op: OpNeq, Param: p} }
func Gt(field string, p Placeholder) Expr  { return Comparison{Field: field, Op: OpGt, Param: p} }
func Gte(field string, p Placeholder) Expr { return Comparison{Field: field, Op: OpGte, Param: p} }
func Lt(field string, p Placeholder) Expr  { return Comparison{Field: field, Op: OpLt, Param: p} }
func Lte(field string, p Placeholder) Expr { return Comparison{Field: field, Op: OpLte, Param: p} }

func In(field string, p Placeholder) Expr    { return Membership{Field: field, Param: p} }
func NotIn(field string, p Placeholder) Expr { return Membership{Field: field, Param: p, Negated: true} }

func LikeOf(field string, p Placeholder) Expr { return Like{Field: field, Param: p} }

func IsNull(field string) Expr    { return NullCheck{Field: field} }
func IsNotNull(field string) Expr { return NullCheck{Field: field, Negated: true} }

// AndX combines exprs with AND. The slice is copied.
func AndX(exprs ...Expr) Expr {
	return And{Exprs: append([]Expr(nil), exprs...)}
}

// OrX combines exprs with OR. The slice is copied.
func OrX(exprs ...Expr) Expr {
	return Or{Exprs: append([]Expr(nil), exprs...)}
}
