package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/smartq/launchpad/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string                `json:"message"`
	Code    string                `json:"code"`
	Fields  []*serrors.FieldError `json:"fields,omitempty"`
	Meta    map[string]string     `json:"meta,omitempty"`
}

// DataEnvelope wraps successful responses the same way the dashboard client
// expects them: a human message plus the payload.
type DataEnvelope struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteData(w http.ResponseWriter, status int, message string, data any) error {
	return WriteJSON(w, status, &DataEnvelope{Message: message, Data: data})
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteFieldErrors reports request validation failures field by field so the
// dashboard can highlight the offending inputs.
func WriteFieldErrors(w http.ResponseWriter, status int, code string, fields []*serrors.FieldError, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: "validation failed",
		Fields:  fields,
		Meta:    meta,
	})
}
