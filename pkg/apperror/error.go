// Package apperror defines the error value returned across component
// boundaries and its mapping onto HTTP responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an application error with an HTTP status and a stable code.
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Internal
}

// Is matches another *Error by code, so wrapped copies still satisfy
// errors.Is against the package-level values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithInternal returns a copy carrying err as the cause.
func (e *Error) WithInternal(err error) *Error {
	c := *e
	c.Internal = err
	return &c
}

// WithMessage returns a copy with a custom message.
func (e *Error) WithMessage(message string) *Error {
	c := *e
	c.Message = message
	return &c
}

// WithDetails returns a copy with details merged over any existing ones.
func (e *Error) WithDetails(details map[string]any) *Error {
	c := *e
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	c.Details = merged
	return &c
}

// Body renders the JSON error envelope.
func (e *Error) Body() map[string]any {
	errBody := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		errBody["details"] = e.Details
	}
	return map[string]any{"error": errBody}
}

// New creates an application error.
func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

var (
	ErrForbidden  = New(http.StatusForbidden, "forbidden", "Access denied")
	ErrNotFound   = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrConflict   = New(http.StatusConflict, "conflict", "Resource state conflict")
	ErrBadRequest = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrValidation = New(http.StatusUnprocessableEntity, "validation_error", "Validation failed")

	ErrInternal    = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
	ErrDatabase    = New(http.StatusInternalServerError, "database_error", "Database operation failed")
	ErrUnavailable = New(http.StatusServiceUnavailable, "unavailable", "Dependency unavailable")
)

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ToHTTPError maps any error onto a status and response body.
func ToHTTPError(err error) (int, map[string]any) {
	if appErr, ok := As(err); ok {
		return appErr.HTTPStatus, appErr.Body()
	}
	return http.StatusInternalServerError, ErrInternal.Body()
}

func NewBadRequest(message string) *Error {
	return ErrBadRequest.WithMessage(message)
}

// NewNotFound creates a not found error for a resource kind and identifier.
func NewNotFound(kind, id string) *Error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s '%s' not found", kind, id))
}

func NewInternal(message string, err error) *Error {
	return ErrInternal.WithMessage(message).WithInternal(err)
}
