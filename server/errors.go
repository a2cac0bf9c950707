package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/giantswarm/oauth2-server/storage"
)

// RFC 6749 error codes (sections 4.1.2.1, 4.2.2.1 and 5.2).
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidClient           = "invalid_client"
	ErrorCodeUnauthorizedClient      = "unauthorized_client"
	ErrorCodeInvalidGrant            = "invalid_grant"
	ErrorCodeInvalidScope            = "invalid_scope"
	ErrorCodeUnsupportedResponseType = "unsupported_response_type"
	ErrorCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrorCodeAccessDenied            = "access_denied"
	ErrorCodeServerError             = "server_error"
	ErrorCodeTemporarilyUnavailable  = "temporarily_unavailable"
)

// Error is a protocol error. Every failure of the core is exactly one of the
// codes above; Status is the HTTP status the boundary renders it with.
type Error struct {
	Code        string
	Description string
	Status      int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches any *Error with the same code, so
// errors.Is(err, ErrInvalidGrant("")) works regardless of description.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a protocol error
func NewError(code, description string, status int) *Error {
	return &Error{
		Code:        code,
		Description: description,
		Status:      status,
	}
}

var (
	// ErrInvalidRequest indicates a missing, repeated or malformed parameter
	ErrInvalidRequest = func(desc string) *Error {
		return NewError(ErrorCodeInvalidRequest, desc, http.StatusBadRequest)
	}

	// ErrInvalidClient indicates client authentication failed
	ErrInvalidClient = func(desc string) *Error {
		return NewError(ErrorCodeInvalidClient, desc, http.StatusUnauthorized)
	}

	// ErrUnauthorizedClient indicates the client is unknown or may not use this flow
	ErrUnauthorizedClient = func(desc string) *Error {
		return NewError(ErrorCodeUnauthorizedClient, desc, http.StatusBadRequest)
	}

	// ErrInvalidGrant indicates the code, refresh token or credentials are invalid
	ErrInvalidGrant = func(desc string) *Error {
		return NewError(ErrorCodeInvalidGrant, desc, http.StatusBadRequest)
	}

	// ErrInvalidScope indicates an unknown, malformed or widened scope
	ErrInvalidScope = func(desc string) *Error {
		return NewError(ErrorCodeInvalidScope, desc, http.StatusBadRequest)
	}

	// ErrUnsupportedResponseType indicates an unknown response_type
	ErrUnsupportedResponseType = func(desc string) *Error {
		return NewError(ErrorCodeUnsupportedResponseType, desc, http.StatusBadRequest)
	}

	// ErrUnsupportedGrantType indicates an unknown grant_type
	ErrUnsupportedGrantType = func(desc string) *Error {
		return NewError(ErrorCodeUnsupportedGrantType, desc, http.StatusBadRequest)
	}

	// ErrAccessDenied indicates the resource owner or server denied the request
	ErrAccessDenied = func(desc string) *Error {
		return NewError(ErrorCodeAccessDenied, desc, http.StatusForbidden)
	}

	// ErrServerError indicates an unexpected condition
	ErrServerError = func(desc string) *Error {
		return NewError(ErrorCodeServerError, desc, http.StatusInternalServerError)
	}

	// ErrTemporarilyUnavailable indicates a transient condition; a retry may succeed
	ErrTemporarilyUnavailable = func(desc string) *Error {
		return NewError(ErrorCodeTemporarilyUnavailable, desc, http.StatusServiceUnavailable)
	}
)

// ErrorCode returns the protocol error code carried by err, or
// server_error if err is not a protocol error.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrorCodeServerError
}

// AsError converts any error into a protocol error. Protocol errors pass
// through unchanged.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return storageError(err, nil)
}

// storageError maps a repository failure onto the taxonomy. notFound builds
// the error for the lookup-miss case; when nil, a miss becomes server_error.
func storageError(err error, notFound func() *Error) *Error {
	switch {
	case errors.Is(err, storage.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ErrTemporarilyUnavailable("storage is temporarily unavailable")
	case isNotFound(err) && notFound != nil:
		return notFound()
	default:
		return ErrServerError("unexpected storage failure")
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrClientNotFound) ||
		errors.Is(err, storage.ErrScopeNotFound) ||
		errors.Is(err, storage.ErrAuthorizationCodeNotFound) ||
		errors.Is(err, storage.ErrAccessTokenNotFound) ||
		errors.Is(err, storage.ErrRefreshTokenNotFound) ||
		errors.Is(err, storage.ErrUserNotFound)
}

// RedirectError is a protocol error that must be delivered to the client
// through its redirect URI rather than rendered directly.
type RedirectError struct {
	Err         *Error
	RedirectURI string
	State       string

	// Fragment is true for the implicit flow (RFC 6749 section 4.2.2.1).
	Fragment bool
}

// Error implements the error interface
func (e *RedirectError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying protocol error
func (e *RedirectError) Unwrap() error {
	return e.Err
}
