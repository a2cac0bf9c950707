package security

import (
	"net/http"
)

// SetSecurityHeaders sets the response headers every OAuth endpoint sends.
// Responses carrying tokens or codes must not be cached (RFC 6749 section 5.1).
func SetSecurityHeaders(w http.ResponseWriter, https bool) {
	h := w.Header()
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	h.Set("Referrer-Policy", "no-referrer")
	if https {
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
}
