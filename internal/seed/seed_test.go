package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/oauth2-server/internal/testutil"
	"github.com/giantswarm/oauth2-server/storage"
	"github.com/giantswarm/oauth2-server/storage/memory"
)

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewWithInterval(time.Hour)
	t.Cleanup(store.Stop)
	return store
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	userHash := testutil.MustHash(t, "hunter2")

	f, err := Parse(strings.NewReader(`
clients:
  - client_id: backend
    client_secret: s3cret
  - client_id: spa
    redirect_uri: https://app.example.com/callback
scopes: [read, write]
users:
  - username: alice
    password_hash: ` + userHash + `
`))
	require.NoError(t, err)
	require.NoError(t, f.Apply(ctx, store))

	backend, err := store.GetClient(ctx, "backend")
	require.NoError(t, err)
	assert.True(t, backend.IsConfidential())
	assert.NoError(t, store.ValidateClientSecret(ctx, "backend", "s3cret"))

	spa, err := store.GetClient(ctx, "spa")
	require.NoError(t, err)
	assert.False(t, spa.IsConfidential())
	assert.Equal(t, "https://app.example.com/callback", spa.RedirectURI)

	for _, name := range []string{"read", "write"} {
		_, err := store.GetScope(ctx, name)
		assert.NoError(t, err, "scope %s", name)
	}

	ok, err := store.VerifyCredential(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestApply_NormalizesUsernames(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	f := &File{Users: []User{{Username: "ju\u0308rgen", PasswordHash: testutil.MustHash(t, "pw")}}}
	require.NoError(t, f.Apply(ctx, store))

	_, err := store.GetUser(ctx, "j\u00fcrgen")
	assert.NoError(t, err)
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		wantErr string
	}{
		{
			name:    "client with secret and hash",
			file:    File{Clients: []Client{{ClientID: "c", ClientSecret: "a", ClientSecretHash: "b"}}},
			wantErr: "not both",
		},
		{
			name:    "user without password",
			file:    File{Users: []User{{Username: "bob"}}},
			wantErr: "password or password_hash is required",
		},
		{
			name:    "client without id",
			file:    File{Clients: []Client{{RedirectURI: "https://x.example.com"}}},
			wantErr: "saving client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.file.Apply(context.Background(), newStore(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("empty document", func(t *testing.T) {
		f, err := Parse(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, f.Clients)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := Parse(strings.NewReader("clients:\n  - id: x\n"))
		require.Error(t, err)
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scopes: [admin]\n"), 0o600))

	store := newStore(t)
	require.NoError(t, LoadFile(context.Background(), path, store))

	_, err := store.GetScope(context.Background(), "admin")
	assert.NoError(t, err)

	err = LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), store)
	assert.Error(t, err)
}

var _ storage.Registry = (*memory.Store)(nil)
