package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/thisisjab/sieve/criteria"
	"github.com/thisisjab/sieve/fault"
)

type apiResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message,omitempty"`
	Data     any            `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.maxBodyBytes())

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return nil, fault.New(fault.BadInputCode, fmt.Sprintf("Body must not be larger than %d bytes.", maxBytesError.Limit))
		}
		return nil, err
	}

	if len(data) == 0 {
		return nil, fault.New(fault.BadInputCode, "Body cannot be empty.")
	}

	return data, nil
}

// readCriteria decodes the request body in the format named by its
// Content-Type. JSON bodies are checked against the document schema first.
func (s *server) readCriteria(w http.ResponseWriter, r *http.Request) (criteria.Criteria, error) {
	data, err := s.readBody(w, r)
	if err != nil {
		return criteria.Criteria{}, err
	}

	format := criteria.FormatFromContentType(r.Header.Get("Content-Type"))
	if format == criteria.FormatJSON {
		if err := criteria.ValidateDocument(data); err != nil {
			return criteria.Criteria{}, err
		}
	}

	return criteria.Decode(data, format)
}

func (s *server) writeJson(w http.ResponseWriter, status int, data apiResponse, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}

	js = append(js, '\n')
	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js) //nolint:errcheck

	return nil
}

// returnOnError writes err as the response and reports whether it did.
func (s *server) returnOnError(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}

	s.handleError(w, r, err)
	return true
}
