package testutil

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/giantswarm/oauth2-server/storage"
)

// Fixture identities seeded by Seed.
const (
	ConfidentialClientID     = "confidential-client"
	ConfidentialClientSecret = "confidential-secret"
	PublicClientID           = "public-client"
	ClientRedirectURI        = "https://client.example.com/callback"

	Username = "alice"
	Password = "correct horse battery staple"
)

// FixtureScopes are the scopes registered by Seed.
var FixtureScopes = []string{"read", "write", "admin"}

// MockTime provides a controllable time source for deterministic testing.
// It is safe for concurrent use.
type MockTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockTime creates a new mock time provider
func NewMockTime(t time.Time) *MockTime {
	return &MockTime{now: t}
}

// Now returns the current mock time
func (m *MockTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock time forward by the given duration
func (m *MockTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set sets the mock time to a specific value
func (m *MockTime) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// GenerateRandomString generates a random URL-safe string of n bytes of entropy
func GenerateRandomString(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// MustHash returns a low-cost bcrypt hash of secret for fixtures
func MustHash(t testing.TB, secret string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

// Seed registers the fixture clients, scopes and user in r.
func Seed(t testing.TB, r storage.Registry) {
	t.Helper()
	ctx := context.Background()

	clients := []*storage.Client{
		{
			ClientID:         ConfidentialClientID,
			ClientSecretHash: MustHash(t, ConfidentialClientSecret),
			RedirectURI:      ClientRedirectURI,
		},
		{
			ClientID:    PublicClientID,
			RedirectURI: ClientRedirectURI,
		},
	}
	for _, c := range clients {
		if err := r.SaveClient(ctx, c); err != nil {
			t.Fatalf("SaveClient(%s): %v", c.ClientID, err)
		}
	}

	for _, name := range FixtureScopes {
		if err := r.SaveScope(ctx, &storage.Scope{Name: name}); err != nil {
			t.Fatalf("SaveScope(%s): %v", name, err)
		}
	}

	if err := r.SaveUser(ctx, &storage.User{Username: Username, PasswordHash: MustHash(t, Password)}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
}
