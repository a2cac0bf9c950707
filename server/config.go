package server

import (
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Grant and response type names (RFC 6749 sections 4.1 to 4.4 and 6).
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypePassword          = "password"
	GrantTypeRefreshToken      = "refresh_token"

	ResponseTypeCode  = "code"
	ResponseTypeToken = "token"
)

// Config holds protocol configuration for the server core
type Config struct {
	// AuthorizationCodeTTL is how long authorization codes are valid
	AuthorizationCodeTTL int64 // seconds, default: 600 (10 minutes)

	// AccessTokenTTL is how long access tokens are valid
	AccessTokenTTL int64 // seconds, default: 3600 (1 hour)

	// RefreshTokenTTL is how long refresh tokens are valid.
	// A negative value issues refresh tokens that never expire.
	RefreshTokenTTL int64 // seconds, default: 7776000 (90 days)

	// DisableRefreshTokenRotation keeps a refresh token valid after use and
	// returns it unchanged from the refresh grant.
	// Default: false (the presented refresh token is invalidated and a new one issued)
	DisableRefreshTokenRotation bool

	// ClockSkewGracePeriod is the allowance applied when resource servers
	// validate access tokens issued by another node
	ClockSkewGracePeriod int64 // seconds, default: 5

	// TokenType is the access token type label, "bearer" or "mac"
	// Default: "bearer"
	TokenType string

	// GrantTypes lists the enabled grant types.
	// Default: authorization_code, client_credentials, password, refresh_token
	GrantTypes []string

	// ResponseTypes lists the enabled response types.
	// Default: code, token
	ResponseTypes []string
}

// DefaultConfig returns a configuration with every default applied
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills in zero values
func applyDefaults(config *Config) {
	if config.AuthorizationCodeTTL == 0 {
		config.AuthorizationCodeTTL = 600
	}
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = 3600
	}
	if config.RefreshTokenTTL == 0 {
		config.RefreshTokenTTL = 7776000
	}
	if config.ClockSkewGracePeriod == 0 {
		config.ClockSkewGracePeriod = 5
	}
	if config.TokenType == "" {
		config.TokenType = TokenTypeBearer
	}
	if len(config.GrantTypes) == 0 {
		config.GrantTypes = []string{
			GrantTypeAuthorizationCode,
			GrantTypeClientCredentials,
			GrantTypePassword,
			GrantTypeRefreshToken,
		}
	}
	if len(config.ResponseTypes) == 0 {
		config.ResponseTypes = []string{ResponseTypeCode, ResponseTypeToken}
	}
}

// validate rejects configurations the server cannot run with
func (c *Config) validate() error {
	if c.AuthorizationCodeTTL < 0 {
		return fmt.Errorf("authorization code TTL must be positive, got %d", c.AuthorizationCodeTTL)
	}
	if c.AccessTokenTTL < 0 {
		return fmt.Errorf("access token TTL must be positive, got %d", c.AccessTokenTTL)
	}
	if _, ok := tokenTypes[c.TokenType]; !ok {
		return fmt.Errorf("unsupported token type %q", c.TokenType)
	}
	return nil
}

// logSecurityWarnings logs warnings for settings that weaken the deployment
func logSecurityWarnings(config *Config, logger *slog.Logger) {
	if slices.Contains(config.GrantTypes, GrantTypePassword) {
		logger.Warn("Resource owner password grant is enabled",
			"risk", "Clients handle user credentials directly",
			"recommendation", "Remove \"password\" from GrantTypes unless clients are fully trusted")
	}
	if slices.Contains(config.ResponseTypes, ResponseTypeToken) {
		logger.Warn("Implicit grant is enabled",
			"risk", "Access tokens are exposed in the redirect URI fragment",
			"recommendation", "Remove \"token\" from ResponseTypes and use the code flow")
	}
	if config.DisableRefreshTokenRotation {
		logger.Warn("Refresh token rotation is disabled",
			"risk", "A leaked refresh token stays valid until it expires",
			"recommendation", "Leave DisableRefreshTokenRotation unset")
	}
	if config.TokenType == TokenTypeMAC {
		logger.Warn("MAC token type selected",
			"note", "Only the token type label is issued; no MAC keys are generated")
	}
}

func secondsToDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}
