package server

import (
	"errors"
	"net/http"

	"github.com/dylanmazurek/debridify/internal/request"
	"github.com/dylanmazurek/debridify/pkg/debrid/models"
)

type errorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Status int    `json:"status,omitempty"` // provider HTTP status
	State  string `json:"state,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	request.JSONResponse(w, data, code)
}

func writeState(w http.ResponseWriter, code int, state, message string) {
	writeJSON(w, code, errorBody{Error: message, State: state})
}

// statusFor maps a repository error onto the response code.
func statusFor(e *models.Error) int {
	switch e.Kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindHTTP:
		if e.Unauthorized() {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	case models.KindEmptyPayload:
		return http.StatusBadGateway
	case models.KindTransport:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	var e *models.Error
	if !errors.As(err, &e) {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	writeJSON(w, statusFor(e), errorBody{
		Error:  models.Message(err),
		Kind:   e.Kind.String(),
		Status: e.StatusCode,
	})
}
