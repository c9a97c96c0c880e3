package storage

import (
	"errors"

	"github.com/thisisjab/sieve/fieldmap"
	"github.com/thisisjab/sieve/querier"
	"github.com/thisisjab/sieve/query"
)

// TableConfig names the table criteria are run against.
type TableConfig struct {
	Table string `yaml:"table"`
	// Columns selected for every query. Empty means all columns.
	Columns []string `yaml:"columns"`
	// AllowedSortFields restricts ORDER BY to these physical names.
	AllowedSortFields []string `yaml:"allowed_sort_fields"`
}

func (c TableConfig) validate() error {
	if c.Table == "" {
		return errors.New("table is required")
	}
	return nil
}

// planner compiles criteria into SQL for one table. Storages embed it to
// get Explain.
type planner struct {
	builder *querier.SQLQueryBuilder
	base    *query.Query
	fields  fieldmap.Provider
}

func newPlanner(dialect querier.Dialect, table TableConfig, fields fieldmap.Provider) planner {
	if fields == nil {
		fields = fieldmap.Map{}
	}

	return planner{
		builder: querier.NewSQLQueryBuilder(querier.SQLOptions{
			Dialect:           dialect,
			AllowedSortFields: table.AllowedSortFields,
		}),
		base:   query.New(table.Table, table.Columns...),
		fields: fields,
	}
}

func (p planner) Explain(req querier.QueryRequest) (querier.BuildResult, error) {
	return p.builder.Compile(p.base, p.fields.FieldMap(), req.Criteria)
}
