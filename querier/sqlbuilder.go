package querier

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/thisisjab/sieve/compiler"
	"github.com/thisisjab/sieve/criteria"
	"github.com/thisisjab/sieve/fieldmap"
	"github.com/thisisjab/sieve/query"
)

// Dialect selects the placeholder style and pagination quirks of a database.
type Dialect string

const (
	DialectClickHouse Dialect = "clickhouse"
	DialectPostgres   Dialect = "postgres"
	DialectSQLite     Dialect = "sqlite3"
	DialectDuckDB     Dialect = "duckdb"
)

// Valid reports whether d is a supported dialect.
func (d Dialect) Valid() bool {
	switch d {
	case DialectClickHouse, DialectPostgres, DialectSQLite, DialectDuckDB:
		return true
	}
	return false
}

// DefaultFieldRegex matches plain and dot qualified column names.
var DefaultFieldRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// SQLOptions holds configuration for the SQL query builder.
type SQLOptions struct {
	// Dialect decides how placeholders and pagination are written.
	// Defaults to DialectClickHouse.
	Dialect Dialect

	// AllowedSortFields is a whitelist of physical field names permitted in
	// ORDER BY clauses. If empty, any field matching
	// AllowedFilterFieldsRegex can be sorted on.
	AllowedSortFields []string

	// AllowedFilterFieldsRegex validates every physical field name written
	// into the query. Field names are interpolated, so this is what keeps
	// user supplied names from injecting SQL. Defaults to DefaultFieldRegex.
	AllowedFilterFieldsRegex *regexp.Regexp
}

// SQLQueryBuilder renders compiled queries as SQL for one dialect.
type SQLQueryBuilder struct {
	opts SQLOptions
}

// NewSQLQueryBuilder creates a new SQL query builder with the given options.
func NewSQLQueryBuilder(opts SQLOptions) *SQLQueryBuilder {
	if opts.Dialect == "" {
		opts.Dialect = DialectClickHouse
	}
	if opts.AllowedFilterFieldsRegex == nil {
		opts.AllowedFilterFieldsRegex = DefaultFieldRegex
	}
	return &SQLQueryBuilder{opts: opts}
}

func (b *SQLQueryBuilder) Dialect() Dialect {
	return b.opts.Dialect
}

// BuildResult holds the generated SQL query and its arguments.
type BuildResult struct {
	Query string
	Args  []any
	// DQL is the dialect independent rendering of the compiled query.
	DQL string
}

// Compile converts c against base and fields, then builds the result.
func (b *SQLQueryBuilder) Compile(base *query.Query, fields fieldmap.Map, c criteria.Criteria) (BuildResult, error) {
	q, err := compiler.Convert(base, fields, c)
	if err != nil {
		return BuildResult{}, fmt.Errorf("failed to compile criteria: %w", err)
	}

	return b.Build(q)
}

// Build builds a complete SELECT query from a compiled query.
func (b *SQLQueryBuilder) Build(q *query.Query) (BuildResult, error) {
	if !b.opts.Dialect.Valid() {
		return BuildResult{}, fmt.Errorf("unsupported dialect %q", b.opts.Dialect)
	}

	if q.Table() == "" {
		return BuildResult{}, fmt.Errorf("query has no table")
	}

	r := &renderer{b: b, q: q}

	var sb strings.Builder

	sb.WriteString("SELECT ")
	if cols := q.Columns(); len(cols) > 0 {
		sb.WriteString(strings.Join(cols, ", "))
	} else {
		sb.WriteString("*")
	}
	sb.WriteString(" FROM ")
	sb.WriteString(q.Table())

	if where := q.Where(); where != nil {
		clause, err := r.render(where)
		if err != nil {
			return BuildResult{}, fmt.Errorf("failed to build where clause: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(clause)
	}

	orderByClause, err := b.buildOrderByClause(q.Orders())
	if err != nil {
		return BuildResult{}, fmt.Errorf("failed to build order by clause: %w", err)
	}
	sb.WriteString(orderByClause)

	paginationClause, err := b.buildPaginationClause(q)
	if err != nil {
		return BuildResult{}, err
	}
	sb.WriteString(paginationClause)

	return BuildResult{Query: sb.String(), Args: r.args, DQL: q.String()}, nil
}

func (b *SQLQueryBuilder) buildOrderByClause(orders []query.OrderBy) (string, error) {
	if len(orders) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if len(b.opts.AllowedSortFields) > 0 && !slices.Contains(b.opts.AllowedSortFields, o.Field) {
			return "", fmt.Errorf("field `%s` is not allowed for sorting", o.Field)
		}
		if err := b.checkField(o.Field); err != nil {
			return "", err
		}

		direction := "ASC"
		if o.Direction == query.Desc {
			direction = "DESC"
		}

		parts = append(parts, fmt.Sprintf("%s %s", o.Field, direction))
	}

	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func (b *SQLQueryBuilder) buildPaginationClause(q *query.Query) (string, error) {
	limit, hasLimit := q.MaxResults()
	offset, hasOffset := q.FirstResult()

	if hasLimit && limit < 0 {
		return "", fmt.Errorf("limit cannot be negative: %d", limit)
	}
	if hasOffset && offset < 0 {
		return "", fmt.Errorf("offset cannot be negative: %d", offset)
	}

	var sb strings.Builder

	switch {
	case hasLimit:
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	case hasOffset && b.opts.Dialect == DialectPostgres:
		sb.WriteString(" LIMIT ALL")
	case hasOffset && b.opts.Dialect == DialectSQLite:
		sb.WriteString(" LIMIT -1")
	}

	if hasOffset {
		fmt.Fprintf(&sb, " OFFSET %d", offset)
	}

	return sb.String(), nil
}

func (b *SQLQueryBuilder) checkField(field string) error {
	if !b.opts.AllowedFilterFieldsRegex.MatchString(field) {
		return fmt.Errorf("invalid field name: %s", field)
	}
	return nil
}

// renderer writes one query's expression tree, collecting arguments in the
// order their placeholders appear.
type renderer struct {
	b    *SQLQueryBuilder
	q    *query.Query
	args []any
}

// render recursively traverses the expression tree and generates SQL.
func (r *renderer) render(e query.Expr) (string, error) {
	switch n := e.(type) {
	case query.And:
		return r.joinExprs(n.Exprs, "AND", "1 = 1")

	case query.Or:
		return r.joinExprs(n.Exprs, "OR", "1 = 0")

	case query.Comparison:
		if err := r.b.checkField(n.Field); err != nil {
			return "", err
		}
		v, err := r.param(n.Param)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", n.Field, n.Op, r.bind(v)), nil

	case query.Like:
		if err := r.b.checkField(n.Field); err != nil {
			return "", err
		}
		v, err := r.param(n.Param)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s LIKE %s", n.Field, r.bind(v)), nil

	case query.Membership:
		return r.formatMembership(n)

	case query.NullCheck:
		if err := r.b.checkField(n.Field); err != nil {
			return "", err
		}
		if n.Negated {
			return n.Field + " IS NOT NULL", nil
		}
		return n.Field + " IS NULL", nil

	default:
		return "", fmt.Errorf("unknown expression type: %T", e)
	}
}

// joinExprs is a helper to handle the recursion for logical groups. An
// empty group renders as its identity element.
func (r *renderer) joinExprs(exprs []query.Expr, operator, empty string) (string, error) {
	if len(exprs) == 0 {
		return empty, nil
	}

	if len(exprs) == 1 {
		return r.render(exprs[0])
	}

	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		part, err := r.render(e) // Recursive call
		if err != nil {
			return "", err
		}
		// Wrap nested groups in parentheses to keep the tree's precedence.
		if query.Arity(e) > 1 {
			part = "(" + part + ")"
		}
		parts = append(parts, part)
	}

	return strings.Join(parts, " "+operator+" "), nil
}

// formatMembership expands the bound list into one placeholder per element.
func (r *renderer) formatMembership(n query.Membership) (string, error) {
	if err := r.b.checkField(n.Field); err != nil {
		return "", err
	}

	v, err := r.param(n.Param)
	if err != nil {
		return "", err
	}

	values := listValues(v)
	if len(values) == 0 {
		// Nothing is in the empty set.
		if n.Negated {
			return "1 = 1", nil
		}
		return "1 = 0", nil
	}

	placeholders := make([]string, len(values))
	for i, value := range values {
		placeholders[i] = r.bind(value)
	}

	op := "IN"
	if n.Negated {
		op = "NOT IN"
	}

	return fmt.Sprintf("%s %s (%s)", n.Field, op, strings.Join(placeholders, ", ")), nil
}

func (r *renderer) param(p query.Placeholder) (any, error) {
	v, ok := r.q.Parameter(int(p))
	if !ok {
		return nil, fmt.Errorf("parameter %s is not bound", p)
	}
	return v, nil
}

// bind records value as the next argument and returns its placeholder.
func (r *renderer) bind(value any) string {
	r.args = append(r.args, value)

	if r.b.opts.Dialect == DialectPostgres {
		return "$" + strconv.Itoa(len(r.args))
	}
	return "?"
}

// listValues flattens any slice or array into its elements. Byte slices and
// non list values are a single element.
func listValues(v any) []any {
	if v == nil {
		return []any{nil}
	}

	if values, ok := v.([]any); ok {
		return values
	}

	if _, ok := v.([]byte); ok {
		return []any{v}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}

	values := make([]any, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}

	return values
}
