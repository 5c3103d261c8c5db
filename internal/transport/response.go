// Package transport contains the HTTP router, middleware chain, and all
// request handlers for the assistant API.
package transport

import (
	"encoding/json"
	"net/http"

	"github.com/winbeat/assist/model"
)

// statusForCode maps ErrorEnvelope codes to HTTP status codes.
var statusForCode = map[string]int{
	model.ErrBadRequest:       http.StatusBadRequest,
	model.ErrUnauthorized:     http.StatusUnauthorized,
	model.ErrForbidden:        http.StatusForbidden,
	model.ErrNotFound:         http.StatusNotFound,
	model.ErrValidationError:  http.StatusUnprocessableEntity,
	model.ErrInternalError:    http.StatusInternalServerError,
	model.ErrUpstreamFailure:  http.StatusBadGateway,
	model.ErrUpstreamTimeout:  http.StatusGatewayTimeout,
	model.ErrNoPageRegistered: http.StatusConflict,
	model.ErrActionNotFound:   http.StatusNotFound,
	model.ErrStalePage:        http.StatusConflict,
	model.ErrWorkflowBusy:     http.StatusConflict,
	model.ErrWorkflowNotFound: http.StatusNotFound,
	model.ErrUnknownStep:      http.StatusUnprocessableEntity,
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// WriteError writes an ErrorEnvelope as a JSON response with the matching
// HTTP status code. Anything that is not an *ErrorEnvelope becomes a
// generic 500.
func WriteError(w http.ResponseWriter, err error) {
	envelope, ok := err.(*model.ErrorEnvelope)
	if !ok {
		envelope = model.NewInternalError()
	}

	status := statusForCode[envelope.Code]
	if status == 0 {
		status = http.StatusInternalServerError
	}

	type errorResponse struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	WriteJSON(w, status, errorResponse{Error: envelope})
}
