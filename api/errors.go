package api

import (
	"errors"
	"net/http"

	"github.com/thisisjab/sieve/compiler"
	"github.com/thisisjab/sieve/fault"
)

func (s *server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var f fault.Fault
	if errors.As(err, &f) {
		switch f.Code() {
		case fault.BadInputCode:
			if md, ok := f.Metadata().(fault.FieldErrorsMetadata); ok {
				// This is a 422 error since it's related to specific field
				s.writeError(w, r, http.StatusUnprocessableEntity, apiResponse{
					Success: false,
					Message: f.Message(),
					Metadata: map[string]any{
						"fields": md,
					},
				})
			} else {
				// This is a 400 as it's a bad request with no metadata or unknown metadata
				res := apiResponse{Success: false, Message: f.Message()}
				if f.Metadata() != nil {
					res.Metadata = map[string]any{"context": f.Metadata()}
				}
				s.writeError(w, r, http.StatusBadRequest, res)
			}
		case fault.NotFoundCode:
			m := f.Message()
			if m == "" {
				m = "Requested resource not found."
			}

			res := apiResponse{Success: false, Message: m}

			if f.Metadata() != nil {
				res.Metadata = map[string]any{"context": f.Metadata()}
			}

			s.writeError(w, r, http.StatusNotFound, res)

		case fault.PermissionDeniedCode:
			m := f.Message()
			if m == "" {
				m = "Permission denied."
			}
			s.writeError(w, r, http.StatusForbidden, apiResponse{Success: false, Message: m})

		case fault.UnsupportedCode:
			s.writeError(w, r, http.StatusUnsupportedMediaType, apiResponse{Success: false, Message: f.Message()})

		default:
			s.internalServerError(w, r, f)
		}

		return
	}

	var ce *compiler.ConditionError
	if errors.As(err, &ce) {
		s.writeError(w, r, http.StatusUnprocessableEntity, apiResponse{
			Success: false,
			Message: "Criteria cannot be compiled.",
			Metadata: map[string]any{
				"fields": fault.FieldErrorsMetadata{ce.Field: []string{ce.Err.Error()}},
			},
		})
		return
	}

	if errors.Is(err, compiler.ErrUnknownFilterKind) {
		s.writeError(w, r, http.StatusUnprocessableEntity, apiResponse{Success: false, Message: "Criteria cannot be compiled."})
		return
	}

	s.internalServerError(w, r, err)
}

func (s *server) logError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("internal server error", "method", r.Method, "path", r.RequestURI, "remote-addr", r.RemoteAddr, "request_id", requestID(r.Context()), "error", err)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, response apiResponse) {
	s.writeJson(w, status, response, nil) //nolint:errcheck
}

func (s *server) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	s.logError(w, r, err)
	s.writeError(w, r, http.StatusInternalServerError, apiResponse{Success: false, Message: "Internal server error"})
}
