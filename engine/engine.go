package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/thisisjab/sieve/criteria"
	"github.com/thisisjab/sieve/entity"
	"github.com/thisisjab/sieve/querier"
)

type Config struct {
	Querier querier.Querier
	// Processors run in order on every record of a search result.
	Processors            []RecordProcessor
	ProcessorWorkersCount uint
}

// Engine runs searches against a querier and post-processes their results.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	pm     *processorManager
}

// SearchResult is the outcome of a single search.
type SearchResult struct {
	ID      uuid.UUID
	Records []entity.Record
	SQL     string
	Took    time.Duration
}

func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Engine{
		cfg:    cfg,
		logger: logger,
		pm:     newProcessorManager(logger, cfg.Processors, int(cfg.ProcessorWorkersCount)),
	}, nil
}

func (c Config) validate() error {
	if c.Querier == nil {
		return errors.New("no querier is configured")
	}

	for i, p := range c.Processors {
		if p == nil {
			return fmt.Errorf("processor #%d is nil", i)
		}
	}

	if c.ProcessorWorkersCount == 0 {
		return errors.New("processor workers cannot be zero")
	}

	return nil
}

// Search validates c, runs it and applies the configured processors to every
// record. Records keep the order the querier returned them in.
func (e *Engine) Search(ctx context.Context, c criteria.Criteria) (SearchResult, error) {
	if err := c.Validate(); err != nil {
		return SearchResult{}, err
	}

	id := uuid.New()
	logger := e.logger.With("search_id", id)
	start := time.Now()

	res, err := e.cfg.Querier.Query(ctx, querier.QueryRequest{Criteria: c})
	if err != nil {
		logger.Error("search failed.", "error", err)
		return SearchResult{}, err
	}

	records, err := e.pm.run(ctx, res.Records)
	if err != nil {
		return SearchResult{}, err
	}

	took := time.Since(start)
	logger.Info("search finished.", "records", len(records), "took", took)
	logger.Debug("search statement.", "sql", res.SQL)

	return SearchResult{ID: id, Records: records, SQL: res.SQL, Took: took}, nil
}

// Explain returns the statement a search for c would run.
func (e *Engine) Explain(c criteria.Criteria) (querier.BuildResult, error) {
	if err := c.Validate(); err != nil {
		return querier.BuildResult{}, err
	}

	return e.cfg.Querier.Explain(querier.QueryRequest{Criteria: c})
}
