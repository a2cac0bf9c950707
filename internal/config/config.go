// Package config loads the oauth2-server binary configuration from
// environment variables and an optional .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends accepted by OAUTH2_STORAGE.
const (
	StorageMemory   = "memory"
	StorageBolt     = "bolt"
	StorageValkey   = "valkey"
	StoragePostgres = "postgres"
)

// Config holds all environment-based configuration for oauth2-server.
type Config struct {
	// Environment controls log format
	Environment string `env:"OAUTH2_ENVIRONMENT" envDefault:"development"`

	ListenAddr      string        `env:"OAUTH2_LISTEN_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"OAUTH2_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Storage backend selection
	Storage         string        `env:"OAUTH2_STORAGE" envDefault:"memory"`
	BoltPath        string        `env:"OAUTH2_BOLT_PATH" envDefault:"oauth2.db"`
	ValkeyAddr      string        `env:"OAUTH2_VALKEY_ADDR"`
	ValkeyPassword  string        `env:"OAUTH2_VALKEY_PASSWORD"`
	ValkeyDB        int           `env:"OAUTH2_VALKEY_DB" envDefault:"0"`
	ValkeyKeyPrefix string        `env:"OAUTH2_VALKEY_KEY_PREFIX" envDefault:"oauth2:"`
	ValkeyTLS       bool          `env:"OAUTH2_VALKEY_TLS" envDefault:"false"`
	PostgresDSN     string        `env:"OAUTH2_POSTGRES_DSN"`
	CleanupInterval time.Duration `env:"OAUTH2_CLEANUP_INTERVAL" envDefault:"1m"`

	// EncryptionKey is a base64 32-byte key sealing records at rest (valkey only)
	EncryptionKey string `env:"OAUTH2_ENCRYPTION_KEY"`

	// SeedFile is a YAML file of clients, scopes and users loaded at startup
	SeedFile string `env:"OAUTH2_SEED_FILE"`

	// Protocol settings, in seconds
	AuthorizationCodeTTL int64    `env:"OAUTH2_AUTHORIZATION_CODE_TTL" envDefault:"600"`
	AccessTokenTTL       int64    `env:"OAUTH2_ACCESS_TOKEN_TTL" envDefault:"3600"`
	RefreshTokenTTL      int64    `env:"OAUTH2_REFRESH_TOKEN_TTL" envDefault:"7776000"`
	ClockSkewGracePeriod int64    `env:"OAUTH2_CLOCK_SKEW_GRACE_PERIOD" envDefault:"5"`
	TokenType            string   `env:"OAUTH2_TOKEN_TYPE" envDefault:"bearer"`
	RefreshRotation      bool     `env:"OAUTH2_REFRESH_ROTATION" envDefault:"true"`
	GrantTypes           []string `env:"OAUTH2_GRANT_TYPES" envSeparator:","`
	ResponseTypes        []string `env:"OAUTH2_RESPONSE_TYPES" envSeparator:","`

	// HTTP surface
	TrustProxy         bool    `env:"OAUTH2_TRUST_PROXY" envDefault:"false"`
	TrustedProxyCount  int     `env:"OAUTH2_TRUSTED_PROXY_COUNT" envDefault:"1"`
	EnableHSTS         bool    `env:"OAUTH2_ENABLE_HSTS" envDefault:"false"`
	EnableAuditLogging bool    `env:"OAUTH2_AUDIT_LOGGING" envDefault:"true"`
	RateLimit          float64 `env:"OAUTH2_RATE_LIMIT" envDefault:"10"`
	RateLimitBurst     int     `env:"OAUTH2_RATE_LIMIT_BURST" envDefault:"20"`

	// ResourceOwnerHeader names the request header carrying the
	// authenticated user set by a fronting login proxy. Empty binds
	// authorization grants to no user.
	ResourceOwnerHeader string `env:"OAUTH2_RESOURCE_OWNER_HEADER"`

	// Observability
	MetricsAddr  string `env:"OAUTH2_METRICS_ADDR"`
	OTLPEndpoint string `env:"OAUTH2_OTLP_ENDPOINT"`
	OTLPInsecure bool   `env:"OAUTH2_OTLP_INSECURE" envDefault:"false"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. It may hold the encryption key and DSNs.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	backends := []string{StorageMemory, StorageBolt, StorageValkey, StoragePostgres}
	if !slices.Contains(backends, c.Storage) {
		return fmt.Errorf("OAUTH2_STORAGE must be one of %v, got %q", backends, c.Storage)
	}

	switch c.Storage {
	case StorageBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("OAUTH2_BOLT_PATH is required for bolt storage")
		}
	case StorageValkey:
		if c.ValkeyAddr == "" {
			return fmt.Errorf("OAUTH2_VALKEY_ADDR is required for valkey storage")
		}
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("OAUTH2_POSTGRES_DSN is required for postgres storage")
		}
	}

	if c.EncryptionKey != "" && c.Storage != StorageValkey {
		return fmt.Errorf("OAUTH2_ENCRYPTION_KEY is only supported with valkey storage")
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("OAUTH2_RATE_LIMIT must not be negative")
	}

	if c.TrustedProxyCount < 1 {
		return fmt.Errorf("OAUTH2_TRUSTED_PROXY_COUNT must be at least 1")
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("OAUTH2_SHUTDOWN_TIMEOUT must be positive")
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
