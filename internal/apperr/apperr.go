// Package apperr carries the error kinds every operation can surface:
// authentication failures (bad or missing token), input validation failures,
// and authorization failures. All failures are synchronous and terminal for
// the call that produced them.
package apperr

import (
	"errors"
	"net/http"
)

// Code identifies an error condition. Codes are strings so they serialize
// naturally and read well in logs.
type Code string

const (
	// CodeUnauthorized means the request lacked a valid session token.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeInvalidInput covers bad input shape, unknown ids and violated
	// preconditions.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeForbidden means the caller is known but lacks the required
	// membership or privilege.
	CodeForbidden Code = "FORBIDDEN"
)

// Error is a coded application error.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// E constructs a coded error.
func E(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Unauthorized constructs an authentication failure.
func Unauthorized(msg string) error { return E(CodeUnauthorized, msg) }

// Input constructs a validation failure.
func Input(msg string) error { return E(CodeInvalidInput, msg) }

// Forbidden constructs an authorization failure.
func Forbidden(msg string) error { return E(CodeForbidden, msg) }

// CodeOf extracts the code from err, or empty if err is not an *Error.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// MessageOf extracts the human-readable message from err, falling back to
// the full error text.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the status the API layer responds with.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
