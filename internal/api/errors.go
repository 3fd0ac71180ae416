package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/admbtski/miglee-sub001/internal/db/mapper"
	"github.com/admbtski/miglee-sub001/internal/domain"
)

// Error is the JSON body of every non-2xx response.
type Error struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func errorFromDomain(err error) (int, Error) {
	status := mapper.HTTPStatusFromDomainError(err)
	body := Error{Code: status, Kind: string(domain.KindOf(err))}
	if status == http.StatusInternalServerError {
		body.Message = "internal error"
		return status, body
	}
	body.Message = err.Error()
	var k domain.KindedError
	if errors.As(err, &k) {
		body.Field = k.OffendingField()
	}
	return status, body
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorFromDomain(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		h.logger.DebugContext(r.Context(), "request refused",
			"method", r.Method, "path", r.URL.Path, "kind", body.Kind, "error", err)
	}
	writeJSON(w, status, body)
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.ErrValidation("body", "invalid JSON body: %v", err)
	}
	return nil
}
