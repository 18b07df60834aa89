package httpx

import (
	"fmt"
	"net/http"
)

// APIError is the JSON error shape every accountd endpoint returns. It
// implements error so handlers can pass one around before writing it.
//
// Authorization failures deliberately share generic descriptions: the caller
// learns that a code or credential was rejected, never which check rejected it.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is a stable machine-readable error code
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Write writes this APIError to an HTTP response writer.
func (e *APIError) Write(w http.ResponseWriter) {
	WriteJSON(w, e.StatusCode, e)
}

// WithDescription returns a copy of the error with a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	return &APIError{StatusCode: e.StatusCode, Code: e.Code, Description: desc}
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_request",
		Description: "The request is missing a parameter or is otherwise malformed",
	}
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_token",
		Description: "The access token is missing, expired, or invalid",
	}
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_credentials",
		Description: "Authentication failed",
	}
	ErrInvalidCode = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_code",
		Description: "The submitted code was not accepted",
	}
	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        "forbidden",
		Description: "You do not have permission to perform this action",
	}
	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        "not_found",
		Description: "The requested resource does not exist",
	}
	ErrConflict = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        "conflict",
		Description: "The request conflicts with the current state of the resource",
	}
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        "server_error",
		Description: "An internal error occurred",
	}
)
