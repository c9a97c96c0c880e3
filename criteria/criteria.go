package criteria

// Criteria is a backend-agnostic query description: a list of filters
// (conjunctive at the top level), an ordering and optional pagination.
// Compilers treat it as read-only.
type Criteria struct {
	// Filters are combined with AND when there is more than one.
	Filters []Filter

	// Orders are applied in the order they appear in the slice.
	// The first one is the primary sort key.
	Orders []Order

	// Offset is the number of rows to skip. Nil means no offset.
	Offset *int

	// Limit is the maximum number of rows to return. Nil means no limit.
	Limit *int
}

// New creates criteria with the given filters and no ordering or pagination.
func New(filters ...Filter) Criteria {
	return Criteria{Filters: filters}
}

// WithOrders returns a copy of c ordered by the given clauses.
func (c Criteria) WithOrders(orders ...Order) Criteria {
	c.Orders = orders
	return c
}

// WithOffset returns a copy of c skipping the first offset rows.
func (c Criteria) WithOffset(offset int) Criteria {
	c.Offset = &offset
	return c
}

// WithLimit returns a copy of c returning at most limit rows.
func (c Criteria) WithLimit(limit int) Criteria {
	c.Limit = &limit
	return c
}

// Filter is the interface that all nodes in the filter tree implement.
// It uses a private marker method so only types defined in this
// package can be used as nodes, creating a closed "sum type".
type Filter interface {
	filterNode()
}

// Condition is a leaf node comparing one logical field against a value.
type Condition struct {
	// Field is the logical field name. Compilers map it to a physical
	// column through a field map.
	Field string

	// Operator defines the relationship between Field and Value.
	Operator Operator

	// Value is the literal to compare against. Nil is the null value,
	// which only Equal and NotEqual accept. In and NotIn expect slices.
	Value any
}

func (Condition) filterNode() {}

// And is satisfied only if all of its Filters are satisfied.
type And struct {
	Filters []Filter
}

func (And) filterNode() {}

// Or is satisfied if at least one of its Filters is satisfied.
type Or struct {
	Filters []Filter
}

func (Or) filterNode() {}

// Cond is shorthand for building a Condition.
func Cond(field string, op Operator, value any) Condition {
	return Condition{Field: field, Operator: op, Value: value}
}

// AllOf builds an And node.
func AllOf(filters ...Filter) And {
	return And{Filters: filters}
}

// AnyOf builds an Or node.
func AnyOf(filters ...Filter) Or {
	return Or{Filters: filters}
}

// Direction is the sort direction of an Order.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Valid reports whether d is Asc or Desc.
func (d Direction) Valid() bool {
	return d == Asc || d == Desc
}

// Order defines a single sorting criterion.
type Order struct {
	// Field is the logical field to sort by.
	Field     string
	Direction Direction
}

// OrderBy builds an Order.
func OrderBy(field string, direction Direction) Order {
	return Order{Field: field, Direction: direction}
}
