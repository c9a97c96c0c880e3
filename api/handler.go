package api

import (
	"net/http"

	"github.com/thisisjab/sieve/criteria"
	"github.com/thisisjab/sieve/criteria/parser"
	"github.com/thisisjab/sieve/fault"
)

// searchHandler runs a criteria document sent as JSON, YAML or MessagePack.
func (s *server) searchHandler(w http.ResponseWriter, r *http.Request) {
	c, err := s.readCriteria(w, r)
	if s.returnOnError(w, r, err) {
		return
	}

	s.search(w, r, c)
}

// searchQueryHandler runs the text criteria in the `q` query parameter,
// e.g. /api/search?q=limit=10 : status=active & age>18
func (s *server) searchQueryHandler(w http.ResponseWriter, r *http.Request) {
	c, err := s.parseQueryParam(r)
	if s.returnOnError(w, r, err) {
		return
	}

	s.search(w, r, c)
}

func (s *server) search(w http.ResponseWriter, r *http.Request, c criteria.Criteria) {
	res, err := s.searcher.Search(r.Context(), c)
	if s.returnOnError(w, r, err) {
		return
	}

	s.writeJson( // nolint:errcheck
		w,
		http.StatusOK,
		apiResponse{
			Success: true,
			Data:    map[string]any{"records": res.Records},
			Metadata: map[string]any{
				"search_id": res.ID,
				"count":     len(res.Records),
				"took_ms":   res.Took.Milliseconds(),
			},
		},
		nil,
	)
}

// compileHandler returns the statement a search would run without running it.
func (s *server) compileHandler(w http.ResponseWriter, r *http.Request) {
	var (
		c   criteria.Criteria
		err error
	)

	if r.URL.Query().Has("q") {
		c, err = s.parseQueryParam(r)
	} else {
		c, err = s.readCriteria(w, r)
	}
	if s.returnOnError(w, r, err) {
		return
	}

	res, err := s.searcher.Explain(c)
	if s.returnOnError(w, r, err) {
		return
	}

	args := res.Args
	if args == nil {
		args = []any{}
	}

	s.writeJson( // nolint:errcheck
		w,
		http.StatusOK,
		apiResponse{
			Success: true,
			Data: map[string]any{
				"sql":  res.Query,
				"args": args,
				"dql":  res.DQL,
			},
		},
		nil,
	)
}

func (s *server) parseQueryParam(r *http.Request) (criteria.Criteria, error) {
	q := r.URL.Query()
	if !q.Has("q") {
		return criteria.Criteria{}, fault.New(fault.BadInputCode, "").WithMetadata(fault.FieldErrorsMetadata{
			"q": []string{"Parameter is required."},
		})
	}

	return parser.Parse(q.Get("q"))
}
