package compiler

import (
	"errors"
	"fmt"

	"github.com/thisisjab/sieve/criteria"
)

var (
	// ErrUnknownFilterKind is returned for a filter node that is not a
	// Condition, And or Or.
	ErrUnknownFilterKind = errors.New("unknown filter kind")

	// ErrNullValueNotApplicable is returned when a null value is used with
	// an operator other than Equal or NotEqual.
	ErrNullValueNotApplicable = errors.New("null value cannot be applied to operator")

	// ErrUnknownOperator is returned for an operator outside the supported set.
	ErrUnknownOperator = errors.New("unknown criteria operator")
)

// ConditionError reports which condition could not be compiled.
type ConditionError struct {
	Field    string
	Operator criteria.Operator
	Err      error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition on `%s` with operator `%s`: %v", e.Field, e.Operator, e.Err)
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}
