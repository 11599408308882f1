package client

import (
	"fmt"
	"net/http"
	"socialwall/internal/apperr"
)

// APIError is a non-2xx answer from the API, decoded from its
// {message, errors} body.
type APIError struct {
	Status  int                 `json:"-"`
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("api: %d %s (%s: %s)", e.Status, e.Message, e.Errors[0].Path, e.Errors[0].Msg)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *APIError) IsValidation() bool   { return e.Status == http.StatusBadRequest }
func (e *APIError) IsUnauthorized() bool { return e.Status == http.StatusUnauthorized }
func (e *APIError) IsForbidden() bool    { return e.Status == http.StatusForbidden }
func (e *APIError) IsNotFound() bool     { return e.Status == http.StatusNotFound }
func (e *APIError) IsConflict() bool     { return e.Status == http.StatusConflict }

// FieldMessage returns the message for path, if the server reported one.
func (e *APIError) FieldMessage(path string) (string, bool) {
	for _, f := range e.Errors {
		if f.Path == path {
			return f.Msg, true
		}
	}
	return "", false
}
