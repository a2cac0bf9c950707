package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/oauth2-server/storage"
)

// PurgeFunc runs a backend's expiry purge once.
type PurgeFunc func(t *testing.T, s storage.Store)

// RunStoreSuite exercises the behaviour every storage backend must share.
// newStore is called once per subtest and must return an empty, isolated
// store. purge runs the backend's expiry cleanup on a store from newStore.
func RunStoreSuite(t *testing.T, newStore func(t *testing.T) storage.Store, purge PurgeFunc) {
	t.Run("clients", func(t *testing.T) { testClients(t, newStore(t)) })
	t.Run("scopes", func(t *testing.T) { testScopes(t, newStore(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("authorization codes", func(t *testing.T) { testCodes(t, newStore(t)) })
	t.Run("access tokens", func(t *testing.T) { testAccessTokens(t, newStore(t)) })
	t.Run("refresh tokens", func(t *testing.T) { testRefreshTokens(t, newStore(t)) })
	t.Run("concurrent code invalidation", func(t *testing.T) { testConcurrentInvalidation(t, newStore(t)) })
	t.Run("expired refresh token survives purge", func(t *testing.T) {
		testExpiredRefreshRetained(t, newStore(t), purge)
	})
}

func testClients(t *testing.T, s storage.Store) {
	ctx := context.Background()
	Seed(t, s)

	c, err := s.GetClient(ctx, ConfidentialClientID)
	require.NoError(t, err)
	assert.Equal(t, ConfidentialClientID, c.ClientID)
	assert.Equal(t, ClientRedirectURI, c.RedirectURI)
	assert.True(t, c.IsConfidential())

	pub, err := s.GetClient(ctx, PublicClientID)
	require.NoError(t, err)
	assert.False(t, pub.IsConfidential())

	_, err = s.GetClient(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrClientNotFound)

	assert.NoError(t, s.ValidateClientSecret(ctx, ConfidentialClientID, ConfidentialClientSecret))
	assert.ErrorIs(t, s.ValidateClientSecret(ctx, ConfidentialClientID, "wrong"), storage.ErrInvalidCredentials)
	assert.ErrorIs(t, s.ValidateClientSecret(ctx, "nobody", "anything"), storage.ErrInvalidCredentials)
	assert.ErrorIs(t, s.ValidateClientSecret(ctx, PublicClientID, ""), storage.ErrInvalidCredentials)
}

func testScopes(t *testing.T, s storage.Store) {
	ctx := context.Background()
	Seed(t, s)

	for _, name := range FixtureScopes {
		sc, err := s.GetScope(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, name, sc.Name)
	}

	_, err := s.GetScope(ctx, "unknown")
	assert.ErrorIs(t, err, storage.ErrScopeNotFound)
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	Seed(t, s)

	u, err := s.GetUser(ctx, Username)
	require.NoError(t, err)
	assert.Equal(t, Username, u.Username)

	_, err = s.GetUser(ctx, "mallory")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	ok, err := s.VerifyCredential(ctx, Username, Password)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.VerifyCredential(ctx, Username, "guess")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testCodes(t *testing.T, s storage.Store) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	code := &storage.AuthorizationCode{
		Code:        GenerateRandomString(32),
		ClientID:    ConfidentialClientID,
		UserID:      Username,
		RedirectURI: ClientRedirectURI,
		Scope:       "read write",
		ExpiresAt:   now.Add(10 * time.Minute),
		CreatedAt:   now,
	}
	require.NoError(t, s.SaveAuthorizationCode(ctx, code))

	got, err := s.GetAuthorizationCode(ctx, ConfidentialClientID, code.Code)
	require.NoError(t, err)
	assert.Equal(t, code.UserID, got.UserID)
	assert.Equal(t, code.RedirectURI, got.RedirectURI)
	assert.Equal(t, code.Scope, got.Scope)
	assert.True(t, code.ExpiresAt.Equal(got.ExpiresAt), "ExpiresAt = %v, want %v", got.ExpiresAt, code.ExpiresAt)

	_, err = s.GetAuthorizationCode(ctx, PublicClientID, code.Code)
	assert.ErrorIs(t, err, storage.ErrAuthorizationCodeNotFound, "code must be bound to its client")

	require.NoError(t, s.InvalidateAuthorizationCode(ctx, code.Code))
	assert.ErrorIs(t, s.InvalidateAuthorizationCode(ctx, code.Code), storage.ErrAuthorizationCodeNotFound)

	_, err = s.GetAuthorizationCode(ctx, ConfidentialClientID, code.Code)
	assert.ErrorIs(t, err, storage.ErrAuthorizationCodeNotFound)
}

func testAccessTokens(t *testing.T, s storage.Store) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	tok := &storage.AccessToken{
		Token:     GenerateRandomString(32),
		TokenType: "bearer",
		ClientID:  ConfidentialClientID,
		UserID:    Username,
		Scope:     "read",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, s.SaveAccessToken(ctx, tok))

	got, err := s.GetAccessToken(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, tok.TokenType, got.TokenType)
	assert.Equal(t, tok.ClientID, got.ClientID)
	assert.Equal(t, tok.UserID, got.UserID)
	assert.Equal(t, tok.Scope, got.Scope)

	_, err = s.GetAccessToken(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrAccessTokenNotFound)
}

func testRefreshTokens(t *testing.T, s storage.Store) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	live := &storage.RefreshToken{
		Token:     GenerateRandomString(32),
		ClientID:  ConfidentialClientID,
		UserID:    Username,
		Scope:     "read write",
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
	}
	forever := &storage.RefreshToken{
		Token:     GenerateRandomString(32),
		ClientID:  ConfidentialClientID,
		UserID:    Username,
		CreatedAt: now,
	}
	require.NoError(t, s.SaveRefreshToken(ctx, live))
	require.NoError(t, s.SaveRefreshToken(ctx, forever))

	got, err := s.GetRefreshToken(ctx, ConfidentialClientID, live.Token)
	require.NoError(t, err)
	assert.Equal(t, live.Scope, got.Scope)
	assert.Equal(t, live.UserID, got.UserID)

	got, err = s.GetRefreshToken(ctx, ConfidentialClientID, forever.Token)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.IsZero(), "non-expiring token must keep a zero ExpiresAt")

	_, err = s.GetRefreshToken(ctx, PublicClientID, live.Token)
	assert.ErrorIs(t, err, storage.ErrRefreshTokenNotFound)

	require.NoError(t, s.InvalidateRefreshToken(ctx, live.Token))
	assert.ErrorIs(t, s.InvalidateRefreshToken(ctx, live.Token), storage.ErrRefreshTokenNotFound)

	_, err = s.GetRefreshToken(ctx, ConfidentialClientID, live.Token)
	assert.ErrorIs(t, err, storage.ErrRefreshTokenNotFound)
}

func testConcurrentInvalidation(t *testing.T, s storage.Store) {
	ctx := context.Background()

	code := &storage.AuthorizationCode{
		Code:      GenerateRandomString(32),
		ClientID:  ConfidentialClientID,
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, s.SaveAuthorizationCode(ctx, code))

	const workers = 16
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.InvalidateAuthorizationCode(ctx, code.Code); err == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load(), "exactly one invalidation must succeed")
}

// testExpiredRefreshRetained checks that a purge keeps a recently expired
// refresh token, so the grant can still tell expired from unknown.
func testExpiredRefreshRetained(t *testing.T, s storage.Store, purge PurgeFunc) {
	ctx := context.Background()
	expiresAt := time.Now().Add(-time.Minute).Truncate(time.Second)

	tok := &storage.RefreshToken{
		Token:     GenerateRandomString(32),
		ClientID:  ConfidentialClientID,
		UserID:    Username,
		ExpiresAt: expiresAt,
		CreatedAt: expiresAt.Add(-time.Hour),
	}
	require.NoError(t, s.SaveRefreshToken(ctx, tok))

	purge(t, s)

	got, err := s.GetRefreshToken(ctx, ConfidentialClientID, tok.Token)
	require.NoError(t, err, "expired refresh token must outlive the purge")
	assert.True(t, got.ExpiresAt.Equal(expiresAt), "ExpiresAt = %v, want %v", got.ExpiresAt, expiresAt)
}
