package security

// Event type constants for security audit logging.
const (
	// EventCodeIssued is logged when the authorization endpoint issues a code
	EventCodeIssued = "authorization_code_issued"

	// EventTokenIssued is logged when an access token is issued, by the token
	// endpoint or by the implicit flow
	EventTokenIssued = "token_issued"

	// EventTokenRefreshed is logged when a refresh token is exchanged
	EventTokenRefreshed = "token_refreshed"

	// EventAuthFailure is logged when a request is rejected with a protocol
	// error, including client authentication failures
	EventAuthFailure = "auth_failure"

	// EventRateLimitExceeded is logged when a client IP exceeds its request rate
	EventRateLimitExceeded = "rate_limit_exceeded"
)
