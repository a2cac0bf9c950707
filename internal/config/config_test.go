package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv unsets all config env vars so tests start clean.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"OAUTH2_ENVIRONMENT",
		"OAUTH2_LISTEN_ADDR",
		"OAUTH2_SHUTDOWN_TIMEOUT",
		"OAUTH2_STORAGE",
		"OAUTH2_BOLT_PATH",
		"OAUTH2_VALKEY_ADDR",
		"OAUTH2_VALKEY_PASSWORD",
		"OAUTH2_VALKEY_DB",
		"OAUTH2_POSTGRES_DSN",
		"OAUTH2_ENCRYPTION_KEY",
		"OAUTH2_SEED_FILE",
		"OAUTH2_ACCESS_TOKEN_TTL",
		"OAUTH2_REFRESH_ROTATION",
		"OAUTH2_GRANT_TYPES",
		"OAUTH2_RESPONSE_TYPES",
		"OAUTH2_TRUSTED_PROXY_COUNT",
		"OAUTH2_RATE_LIMIT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, int64(600), cfg.AuthorizationCodeTTL)
	assert.Equal(t, int64(3600), cfg.AccessTokenTTL)
	assert.Equal(t, int64(7776000), cfg.RefreshTokenTTL)
	assert.Equal(t, "bearer", cfg.TokenType)
	assert.True(t, cfg.RefreshRotation)
	assert.Empty(t, cfg.GrantTypes)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OAUTH2_ENVIRONMENT", "production")
	t.Setenv("OAUTH2_ACCESS_TOKEN_TTL", "900")
	t.Setenv("OAUTH2_REFRESH_ROTATION", "false")
	t.Setenv("OAUTH2_GRANT_TYPES", "authorization_code,refresh_token")
	t.Setenv("OAUTH2_RESPONSE_TYPES", "code")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, int64(900), cfg.AccessTokenTTL)
	assert.False(t, cfg.RefreshRotation)
	assert.Equal(t, []string{"authorization_code", "refresh_token"}, cfg.GrantTypes)
	assert.Equal(t, []string{"code"}, cfg.ResponseTypes)
}

func TestLoad_InvalidNumber(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OAUTH2_ACCESS_TOKEN_TTL", "an hour")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown storage",
			env:     map[string]string{"OAUTH2_STORAGE": "mysql"},
			wantErr: "OAUTH2_STORAGE",
		},
		{
			name:    "valkey without address",
			env:     map[string]string{"OAUTH2_STORAGE": "valkey"},
			wantErr: "OAUTH2_VALKEY_ADDR",
		},
		{
			name:    "postgres without dsn",
			env:     map[string]string{"OAUTH2_STORAGE": "postgres"},
			wantErr: "OAUTH2_POSTGRES_DSN",
		},
		{
			name:    "encryption key without valkey",
			env:     map[string]string{"OAUTH2_ENCRYPTION_KEY": "a2V5"},
			wantErr: "OAUTH2_ENCRYPTION_KEY",
		},
		{
			name:    "negative rate limit",
			env:     map[string]string{"OAUTH2_RATE_LIMIT": "-1"},
			wantErr: "OAUTH2_RATE_LIMIT",
		},
		{
			name:    "zero proxy count",
			env:     map[string]string{"OAUTH2_TRUSTED_PROXY_COUNT": "0"},
			wantErr: "OAUTH2_TRUSTED_PROXY_COUNT",
		},
		{
			name: "valkey with address",
			env:  map[string]string{"OAUTH2_STORAGE": "valkey", "OAUTH2_VALKEY_ADDR": "localhost:6379"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
