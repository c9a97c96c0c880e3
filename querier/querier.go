package querier

import (
	"context"

	"github.com/thisisjab/sieve/criteria"
	"github.com/thisisjab/sieve/entity"
)

type QueryRequest struct {
	Criteria criteria.Criteria
}

type QueryResponse struct {
	Records []entity.Record
	// SQL is the statement that produced Records.
	SQL string
}

// Querier runs criteria against a storage backend.
type Querier interface {
	Query(ctx context.Context, req QueryRequest) (QueryResponse, error)

	// Explain returns the statement Query would run, without running it.
	Explain(req QueryRequest) (BuildResult, error)
}
