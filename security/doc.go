// Package security provides the security plumbing of the authorization
// server: audit logging, per-client-IP rate limiting, client IP extraction,
// request IDs, response headers, expiry checks and encryption of storage
// records at rest.
//
// # Rate Limiting
//
// RateLimiter keeps one token bucket per key (the client IP at the HTTP
// boundary). Memory is bounded by MaxEntries with LRU eviction, and keys
// idle for longer than IdleTimeout are removed by a background goroutine:
//
//	limiter := security.NewRateLimiter(security.RateLimiterConfig{
//		RequestsPerSecond: 10,
//		Burst:             20,
//	}, logger)
//	defer limiter.Stop()
//
//	if !limiter.Allow(clientIP) {
//		// reject with temporarily_unavailable
//	}
//
// # Audit Logging
//
// Auditor writes "security_audit" records through slog. User identifiers are
// hashed; the client IP and request ID are read from the request context
// (WithClientIP, RequestIDMiddleware).
//
// # Client IP
//
// ClientIPResolver only trusts X-Forwarded-For and X-Real-IP when
// TrustProxy is set, and then skips TrustedProxyCount hops from the right.
//
// # Records at Rest
//
// RecordSealer seals storage records with AES-256-GCM, using the storage
// key as additional data. A nil sealer stores plaintext.
package security
