package criteria

import (
	"fmt"

	"github.com/thisisjab/sieve/fault"
)

// Validate checks the shape of the criteria and returns a fault.BadInputCode
// fault whose metadata lists every problem, keyed by document path.
// Compilers do not require validated input; this is meant for criteria
// coming from outside the process.
func (c Criteria) Validate() error {
	md := fault.FieldErrorsMetadata{}

	if c.Offset != nil && *c.Offset < 0 {
		md.Add("offset", "Value cannot be negative.")
	}

	if c.Limit != nil && *c.Limit < 0 {
		md.Add("limit", "Value cannot be negative.")
	}

	for i, f := range c.Filters {
		validateFilter(md, fmt.Sprintf("filters[%d]", i), f)
	}

	for i, o := range c.Orders {
		path := fmt.Sprintf("orders[%d]", i)
		if o.Field == "" {
			md.Add(path+".field", "Field is required.")
		}
		if !o.Direction.Valid() {
			md.Add(path+".direction", fmt.Sprintf("Unknown direction %q.", o.Direction))
		}
	}

	if len(md) > 0 {
		return fault.New(fault.BadInputCode, "").WithMetadata(md)
	}

	return nil
}

func validateFilter(md fault.FieldErrorsMetadata, path string, f Filter) {
	switch n := f.(type) {
	case Condition:
		validateCondition(md, path, n)
		return
	case *Condition:
		if n != nil {
			validateCondition(md, path, *n)
			return
		}
	case And:
		validateChildren(md, path+".and", n.Filters)
		return
	case *And:
		if n != nil {
			validateChildren(md, path+".and", n.Filters)
			return
		}
	case Or:
		validateChildren(md, path+".or", n.Filters)
		return
	case *Or:
		if n != nil {
			validateChildren(md, path+".or", n.Filters)
			return
		}
	}

	md.Add(path, fmt.Sprintf("Unknown filter type %T.", f))
}

func validateChildren(md fault.FieldErrorsMetadata, path string, children []Filter) {
	if len(children) == 0 {
		md.Add(path, "At least one filter is required.")
		return
	}

	for i, child := range children {
		validateFilter(md, fmt.Sprintf("%s[%d]", path, i), child)
	}
}

func validateCondition(md fault.FieldErrorsMetadata, path string, c Condition) {
	if c.Field == "" {
		md.Add(path+".field", "Field is required.")
	}

	if !c.Operator.Valid() {
		md.Add(path+".op", fmt.Sprintf("Unknown operator %q.", c.Operator))
		return
	}

	if c.Value == nil && !c.Operator.AcceptsNull() {
		md.Add(path+".value", fmt.Sprintf("Null cannot be used with %s.", c.Operator))
	}
}
