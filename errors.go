package oauth

import (
	"github.com/giantswarm/oauth2-server/server"
)

// OAuth error codes, re-exported from the protocol core
const (
	ErrorCodeInvalidRequest          = server.ErrorCodeInvalidRequest
	ErrorCodeInvalidClient           = server.ErrorCodeInvalidClient
	ErrorCodeUnauthorizedClient      = server.ErrorCodeUnauthorizedClient
	ErrorCodeInvalidGrant            = server.ErrorCodeInvalidGrant
	ErrorCodeInvalidScope            = server.ErrorCodeInvalidScope
	ErrorCodeUnsupportedResponseType = server.ErrorCodeUnsupportedResponseType
	ErrorCodeUnsupportedGrantType    = server.ErrorCodeUnsupportedGrantType
	ErrorCodeAccessDenied            = server.ErrorCodeAccessDenied
	ErrorCodeServerError             = server.ErrorCodeServerError
	ErrorCodeTemporarilyUnavailable  = server.ErrorCodeTemporarilyUnavailable

	// ErrorCodeInvalidToken is the RFC 6750 bearer token error used by the
	// ValidateToken middleware
	ErrorCodeInvalidToken = "invalid_token"
)

// Error is a protocol error with its HTTP status
type Error = server.Error

// RedirectError is a protocol error delivered through the redirect URI
type RedirectError = server.RedirectError

// Error constructors, re-exported from the protocol core
var (
	ErrInvalidRequest          = server.ErrInvalidRequest
	ErrInvalidClient           = server.ErrInvalidClient
	ErrUnauthorizedClient      = server.ErrUnauthorizedClient
	ErrInvalidGrant            = server.ErrInvalidGrant
	ErrInvalidScope            = server.ErrInvalidScope
	ErrUnsupportedResponseType = server.ErrUnsupportedResponseType
	ErrUnsupportedGrantType    = server.ErrUnsupportedGrantType
	ErrAccessDenied            = server.ErrAccessDenied
	ErrServerError             = server.ErrServerError
	ErrTemporarilyUnavailable  = server.ErrTemporarilyUnavailable
)
