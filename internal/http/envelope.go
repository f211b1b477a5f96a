// Package httpapi is the HTTP surface of citizenly-registry: routing,
// bearer-token middleware and one handler type per resource. Responses
// use a {data|error} envelope; services return apperr values and this
// package owns their translation to statuses.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"citizenly-registry/internal/apperr"

	"go.uber.org/zap"
)

type envelope struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

// writeError translates a service error into the envelope. Internal
// detail is logged, never returned; everything else surfaces with its
// code and fields.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		writeJSON(w, apperr.ToHTTPStatus(appErr.Code), envelope{Error: &errorBody{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Fields:  appErr.Fields,
		}})
		return
	}

	logger.Error("Unhandled request error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, envelope{Error: &errorBody{
		Code:    string(apperr.CodeInternal),
		Message: "internal server error",
	}})
}

// readBodyJSON decodes a request body capped at maxBytes. An oversized
// body maps to 413, malformed JSON to a validation error.
func readBodyJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.New(apperr.CodePayloadTooLarge, "request body is too large")
		}
		return apperr.Wrap(err, apperr.CodeValidation, "failed to read request body")
	}
	if len(body) == 0 {
		return apperr.New(apperr.CodeValidation, "request body is required")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Wrap(err, apperr.CodeValidation, "request body is not valid JSON")
	}
	return nil
}

// readBodyBytes reads a raw upload (workbook import) with the same 413
// mapping as readBodyJSON.
func readBodyBytes(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.New(apperr.CodePayloadTooLarge, "request body is too large")
		}
		return nil, apperr.Wrap(err, apperr.CodeValidation, "failed to read request body")
	}
	return body, nil
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// queryBool returns nil when the parameter is absent or unparseable, so
// tri-state filters stay tri-state.
func queryBool(r *http.Request, key string) *bool {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &b
}
