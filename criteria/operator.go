package criteria

// Operator defines the comparison performed by a Condition.
type Operator string

const (
	// Equal checks if the field is equal to the value, or is null when the value is nil.
	Equal Operator = "="
	// NotEqual checks if the field differs from the value, or is not null when the value is nil.
	NotEqual Operator = "!="
	// Gt checks if the field is strictly greater than the value.
	Gt Operator = ">"
	// Gte checks if the field is greater than or equal to the value.
	Gte Operator = ">="
	// Lt checks if the field is strictly less than the value.
	Lt Operator = "<"
	// Lte checks if the field is less than or equal to the value.
	Lte Operator = "<="
	// In checks if the field is in the list of values.
	In Operator = "IN"
	// NotIn checks if the field is not in the list of values.
	NotIn Operator = "NOT IN"
	// StartsWith checks if the field begins with the value.
	StartsWith Operator = "STARTS_WITH"
	// EndsWith checks if the field ends with the value.
	EndsWith Operator = "ENDS_WITH"
	// Contains checks if the field contains the value.
	Contains Operator = "CONTAINS"
)

var operators = []Operator{Equal, NotEqual, Gt, Gte, Lt, Lte, In, NotIn, StartsWith, EndsWith, Contains}

// Operators returns the closed set of supported operators.
func Operators() []Operator {
	out := make([]Operator, len(operators))
	copy(out, operators)
	return out
}

// Valid reports whether op belongs to the supported set.
func (op Operator) Valid() bool {
	for _, o := range operators {
		if o == op {
			return true
		}
	}
	return false
}

// IsPattern reports whether op is matched with a LIKE pattern.
func (op Operator) IsPattern() bool {
	return op == StartsWith || op == EndsWith || op == Contains
}

// AcceptsNull reports whether op can be used with a nil value.
func (op Operator) AcceptsNull() bool {
	return op == Equal || op == NotEqual
}
