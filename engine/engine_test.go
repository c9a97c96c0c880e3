package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisjab/sieve/criteria"
	"github.com/thisisjab/sieve/entity"
	"github.com/thisisjab/sieve/fault"
	"github.com/thisisjab/sieve/querier"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeQuerier struct {
	records []entity.Record
	err     error
	got     []querier.QueryRequest
}

func (f *fakeQuerier) Query(_ context.Context, req querier.QueryRequest) (querier.QueryResponse, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return querier.QueryResponse{}, f.err
	}
	return querier.QueryResponse{Records: f.records, SQL: "SELECT 1"}, nil
}

func (f *fakeQuerier) Explain(req querier.QueryRequest) (querier.BuildResult, error) {
	f.got = append(f.got, req)
	return querier.BuildResult{Query: "SELECT 1", DQL: "dql"}, nil
}

type funcProcessor struct {
	name string
	fn   func(entity.Record) (entity.Record, error)
}

func (p funcProcessor) Name() string { return p.name }

func (p funcProcessor) Process(r entity.Record) (entity.Record, error) { return p.fn(r) }

func tag(name string) funcProcessor {
	return funcProcessor{name: name, fn: func(r entity.Record) (entity.Record, error) {
		out := r.Clone()
		prev, _ := out["trail"].(string)
		out["trail"] = prev + name
		return out, nil
	}}
}

func records(n int) []entity.Record {
	out := make([]entity.Record, n)
	for i := range out {
		out[i] = entity.Record{"id": i}
	}
	return out
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		err  string
	}{
		{name: "no querier", cfg: Config{ProcessorWorkersCount: 1}, err: "no querier"},
		{name: "no workers", cfg: Config{Querier: &fakeQuerier{}}, err: "workers cannot be zero"},
		{name: "nil processor", cfg: Config{Querier: &fakeQuerier{}, ProcessorWorkersCount: 1, Processors: []RecordProcessor{nil}}, err: "processor #0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, discardLogger)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestSearchAppliesProcessorsInOrder(t *testing.T) {
	q := &fakeQuerier{records: records(100)}

	e, err := New(Config{
		Querier:               q,
		Processors:            []RecordProcessor{tag("a"), tag("b")},
		ProcessorWorkersCount: 8,
	}, discardLogger)
	require.NoError(t, err)

	c := criteria.New(criteria.Cond("status", criteria.Equal, "active"))
	res, err := e.Search(context.Background(), c)
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "SELECT 1", res.SQL)
	require.Len(t, res.Records, 100)
	for i, r := range res.Records {
		assert.Equal(t, i, r["id"])
		assert.Equal(t, "ab", r["trail"])
	}

	require.Len(t, q.got, 1)
	assert.Equal(t, c, q.got[0].Criteria)
	assert.NotContains(t, q.records[0], "trail", "querier records must not change")
}

func TestSearchSkipsFailingProcessor(t *testing.T) {
	failing := funcProcessor{name: "bad", fn: func(entity.Record) (entity.Record, error) {
		return nil, errors.New("nope")
	}}

	e, err := New(Config{
		Querier:               &fakeQuerier{records: records(3)},
		Processors:            []RecordProcessor{tag("a"), failing, tag("c")},
		ProcessorWorkersCount: 2,
	}, discardLogger)
	require.NoError(t, err)

	res, err := e.Search(context.Background(), criteria.Criteria{})
	require.NoError(t, err)
	for _, r := range res.Records {
		assert.Equal(t, "ac", r["trail"])
	}
}

func TestSearchWithoutProcessors(t *testing.T) {
	q := &fakeQuerier{records: records(2)}
	e, err := New(Config{Querier: q, ProcessorWorkersCount: 1}, discardLogger)
	require.NoError(t, err)

	res, err := e.Search(context.Background(), criteria.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, q.records, res.Records)
}

func TestSearchRejectsInvalidCriteria(t *testing.T) {
	q := &fakeQuerier{}
	e, err := New(Config{Querier: q, ProcessorWorkersCount: 1}, discardLogger)
	require.NoError(t, err)

	_, err = e.Search(context.Background(), criteria.Criteria{}.WithLimit(-1))
	require.Error(t, err)
	assert.True(t, fault.HasCode(err, fault.BadInputCode))
	assert.Empty(t, q.got)

	_, err = e.Explain(criteria.Criteria{}.WithOffset(-1))
	require.Error(t, err)
	assert.Empty(t, q.got)
}

func TestSearchReturnsQuerierError(t *testing.T) {
	e, err := New(Config{Querier: &fakeQuerier{err: fmt.Errorf("boom")}, ProcessorWorkersCount: 1}, discardLogger)
	require.NoError(t, err)

	_, err = e.Search(context.Background(), criteria.Criteria{})
	require.EqualError(t, err, "boom")
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	slow := funcProcessor{name: "cancel", fn: func(r entity.Record) (entity.Record, error) {
		cancel()
		return r, nil
	}}

	e, err := New(Config{
		Querier:               &fakeQuerier{records: records(50)},
		Processors:            []RecordProcessor{slow},
		ProcessorWorkersCount: 1,
	}, discardLogger)
	require.NoError(t, err)

	_, err = e.Search(ctx, criteria.Criteria{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExplain(t *testing.T) {
	e, err := New(Config{Querier: &fakeQuerier{}, ProcessorWorkersCount: 1}, discardLogger)
	require.NoError(t, err)

	res, err := e.Explain(criteria.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", res.Query)
	assert.True(t, strings.HasPrefix(res.DQL, "dql"))
}
