package compiler

import (
	"fmt"

	"github.com/thisisjab/sieve/criteria"
	"github.com/thisisjab/sieve/query"
)

// compileCondition sends equality tests against null through the field
// group expansion, everything else through compileBasicCondition.
func (c *Compiler) compileCondition(cond criteria.Condition) (query.Expr, error) {
	if cond.Value == nil && cond.Operator.AcceptsNull() {
		return c.compileNullCondition(cond)
	}

	return c.compileBasicCondition(cond)
}

// compileNullCondition tests every physical field a logical field stands
// for. The per-field tests are always combined with AND, for NotEqual too.
func (c *Compiler) compileNullCondition(cond criteria.Condition) (query.Expr, error) {
	fields := c.fields.ResolveSet(cond.Field)

	if len(fields) == 1 {
		return c.buildCondition(fields[0], cond)
	}

	exprs := make([]query.Expr, 0, len(fields))
	for _, field := range fields {
		// Members are logical names in their own right.
		e, err := c.compileBasicCondition(criteria.Condition{Field: field, Operator: cond.Operator, Value: cond.Value})
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}

	return query.AndX(exprs...), nil
}

func (c *Compiler) compileBasicCondition(cond criteria.Condition) (query.Expr, error) {
	return c.buildCondition(c.fields.Resolve(cond.Field), cond)
}

// buildCondition compiles cond against the already resolved physical field.
// Errors still name the logical field.
func (c *Compiler) buildCondition(field string, cond criteria.Condition) (query.Expr, error) {
	if cond.Value == nil {
		switch cond.Operator {
		case criteria.Equal:
			return query.IsNull(field), nil
		case criteria.NotEqual:
			return query.IsNotNull(field), nil
		default:
			return nil, &ConditionError{Field: cond.Field, Operator: cond.Operator, Err: ErrNullValueNotApplicable}
		}
	}

	if !cond.Operator.Valid() {
		return nil, &ConditionError{Field: cond.Field, Operator: cond.Operator, Err: ErrUnknownOperator}
	}

	p := c.params.allocate(patternValue(cond.Operator, cond.Value))

	switch cond.Operator {
	case criteria.Equal:
		return query.Eq(field, p), nil
	case criteria.NotEqual:
		return query.Neq(field, p), nil
	case criteria.Gt:
		return query.Gt(field, p), nil
	case criteria.Gte:
		return query.Gte(field, p), nil
	case criteria.Lt:
		return query.Lt(field, p), nil
	case criteria.Lte:
		return query.Lte(field, p), nil
	case criteria.In:
		return query.In(field, p), nil
	case criteria.NotIn:
		return query.NotIn(field, p), nil
	case criteria.StartsWith, criteria.EndsWith, criteria.Contains:
		return query.LikeOf(field, p), nil
	default:
		return nil, &ConditionError{Field: cond.Field, Operator: cond.Operator, Err: ErrUnknownOperator}
	}
}

// patternValue turns the value of a pattern operator into a LIKE pattern.
// Other operators get the value unchanged.
func patternValue(op criteria.Operator, value any) any {
	switch op {
	case criteria.Contains:
		return "%" + fmt.Sprint(value) + "%"
	case criteria.StartsWith:
		return fmt.Sprint(value) + "%"
	case criteria.EndsWith:
		return "%" + fmt.Sprint(value)
	default:
		return value
	}
}
