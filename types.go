package oauth

import (
	"github.com/giantswarm/oauth2-server/server"
)

// TokenResponse is the RFC 6749 section 5.1 success payload
type TokenResponse = server.TokenResponse

// ErrorResponse represents an OAuth error response (RFC 6749 section 5.2)
type ErrorResponse struct {
	// Error is the error code
	Error string `json:"error"`

	// ErrorDescription is a human-readable explanation
	ErrorDescription string `json:"error_description,omitempty"`

	// ErrorURI links to a page describing the error
	ErrorURI string `json:"error_uri,omitempty"`
}
