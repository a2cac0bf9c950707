package oauth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/giantswarm/oauth2-server/server"
)

// Config holds the OAuth handler configuration.
// Structured using composition: protocol settings live in Server, the HTTP
// surface in RateLimit and Security.
type Config struct {
	// Server holds the protocol settings (TTLs, token type, enabled grant
	// and response types)
	Server server.Config

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// Security settings (secure by default)
	Security SecurityConfig

	// MaxRequestBodySize bounds token request bodies in bytes
	// Default: 65536
	MaxRequestBodySize int64

	// ResourceOwner returns the resource owner of an authorization request,
	// typically from a session established by the caller's login handling.
	// An empty result binds the code or token to no user.
	ResourceOwner func(r *http.Request) string

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Rate is requests per second allowed per client IP. Zero disables limiting.
	Rate float64

	// Burst is the maximum burst size allowed per client IP.
	// Default: twice Rate, at least 1
	Burst int

	// MaxEntries bounds the number of tracked IPs.
	// Default: 10000
	MaxEntries int

	// CleanupInterval is how often inactive limiters are removed.
	// Default: 5 minutes
	CleanupInterval time.Duration
}

// SecurityConfig holds HTTP security settings
type SecurityConfig struct {
	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP headers.
	// Only enable behind a trusted reverse proxy.
	TrustProxy bool

	// TrustedProxyCount is the number of proxies in front of the server.
	// Default: 1
	TrustedProxyCount int

	// EnableHSTS adds Strict-Transport-Security to every response.
	// Enable when the server is only reachable over HTTPS.
	EnableHSTS bool

	// EnableAuditLogging enables security audit logging
	// (sensitive identifiers are hashed)
	EnableAuditLogging bool
}

const (
	defaultMaxRequestBodySize = 64 << 10
	defaultTrustedProxyCount  = 1
	defaultRetryAfterSeconds  = "60"
)

// applyDefaults fills in zero values of the HTTP surface settings
func applyDefaults(config *Config) {
	if config.MaxRequestBodySize <= 0 {
		config.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if config.Security.TrustedProxyCount <= 0 {
		config.Security.TrustedProxyCount = defaultTrustedProxyCount
	}
	if config.RateLimit.Rate > 0 && config.RateLimit.Burst <= 0 {
		config.RateLimit.Burst = max(1, int(2*config.RateLimit.Rate))
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
}

// logSecurityWarnings logs warnings for HTTP settings that weaken the deployment
func logSecurityWarnings(config *Config) {
	logger := config.Logger
	if config.RateLimit.Rate <= 0 {
		logger.Warn("Rate limiting is disabled",
			"risk", "Credential guessing against the token endpoint is unthrottled",
			"recommendation", "Set RateLimit.Rate")
	}
	if config.Security.TrustProxy {
		logger.Warn("Trusting proxy headers",
			"risk", "IP spoofing if the proxy is not properly configured",
			"trusted_proxy_count", config.Security.TrustedProxyCount)
	}
}
