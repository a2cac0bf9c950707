package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/giantswarm/oauth2-server/instrumentation"
	"github.com/giantswarm/oauth2-server/internal/util"
	"github.com/giantswarm/oauth2-server/security"
	"github.com/giantswarm/oauth2-server/storage"
)

const (
	// storageType labels spans and metrics of this backend
	storageType = "memory"

	// tokenIDLogLength is the number of characters to include when logging token IDs
	tokenIDLogLength = 8
)

// Store is an in-memory implementation of all storage interfaces.
type Store struct {
	mu sync.RWMutex

	clients       map[string]*storage.Client
	scopes        map[string]*storage.Scope
	users         map[string]*storage.User
	codes         map[string]*storage.AuthorizationCode
	accessTokens  map[string]*storage.AccessToken
	refreshTokens map[string]*storage.RefreshToken

	inst *instrumentation.Instrumentation

	now             func() time.Time
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	logger          *slog.Logger
}

// Compile-time interface check
var _ storage.Store = (*Store)(nil)

// New creates a new in-memory store with the default cleanup interval (1 minute)
func New() *Store {
	return NewWithInterval(time.Minute)
}

// NewWithInterval creates a new in-memory store with custom cleanup interval.
// If cleanupInterval is 0 or negative, uses default of 1 minute.
func NewWithInterval(cleanupInterval time.Duration) *Store {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	s := &Store{
		clients:         make(map[string]*storage.Client),
		scopes:          make(map[string]*storage.Scope),
		users:           make(map[string]*storage.User),
		codes:           make(map[string]*storage.AuthorizationCode),
		accessTokens:    make(map[string]*storage.AccessToken),
		refreshTokens:   make(map[string]*storage.RefreshToken),
		now:             time.Now,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
		logger:          slog.Default(),
	}

	go s.cleanupLoop()

	return s
}

// SetLogger sets a custom logger
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetInstrumentation enables tracing and metrics for storage operations
func (s *Store) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.inst = inst
}

// Stop stops the background cleanup goroutine. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

// ============================================================
// Registry Implementation
// ============================================================

// SaveClient registers or replaces a client
func (s *Store) SaveClient(ctx context.Context, client *storage.Client) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "save_client")
	defer func() { done(err) }()

	if client == nil || client.ClientID == "" {
		return fmt.Errorf("invalid client")
	}

	c := *client
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ClientID] = &c

	s.logger.Debug("Saved client", "client_id", c.ClientID)
	return nil
}

// SaveScope registers a scope
func (s *Store) SaveScope(ctx context.Context, scope *storage.Scope) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "save_scope")
	defer func() { done(err) }()

	if scope == nil || scope.Name == "" {
		return fmt.Errorf("invalid scope")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes[scope.Name] = &storage.Scope{Name: scope.Name}
	return nil
}

// SaveUser registers or replaces a user
func (s *Store) SaveUser(ctx context.Context, user *storage.User) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "save_user")
	defer func() { done(err) }()

	if user == nil || user.Username == "" {
		return fmt.Errorf("invalid user")
	}

	u := *user
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = &u
	return nil
}

// ============================================================
// ClientStore Implementation
// ============================================================

// GetClient retrieves a client by ID
func (s *Store) GetClient(ctx context.Context, clientID string) (_ *storage.Client, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "get_client")
	defer func() { done(err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[clientID]
	if !ok {
		return nil, storage.ErrClientNotFound
	}
	c := *client
	return &c, nil
}

// ValidateClientSecret checks the secret against the stored bcrypt hash.
// The comparison runs even for unknown clients.
func (s *Store) ValidateClientSecret(ctx context.Context, clientID, clientSecret string) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "validate_client_secret")
	defer func() { done(err) }()

	s.mu.RLock()
	var hash string
	if client, ok := s.clients[clientID]; ok {
		hash = client.ClientSecretHash
	}
	s.mu.RUnlock()

	if !storage.CompareSecret(hash, clientSecret) {
		return storage.ErrInvalidCredentials
	}
	return nil
}

// ============================================================
// ScopeStore Implementation
// ============================================================

// GetScope retrieves a registered scope
func (s *Store) GetScope(ctx context.Context, name string) (_ *storage.Scope, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "get_scope")
	defer func() { done(err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	scope, ok := s.scopes[name]
	if !ok {
		return nil, storage.ErrScopeNotFound
	}
	return &storage.Scope{Name: scope.Name}, nil
}

// ============================================================
// CodeStore Implementation
// ============================================================

// SaveAuthorizationCode stores an authorization code
func (s *Store) SaveAuthorizationCode(ctx context.Context, code *storage.AuthorizationCode) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "save_authorization_code")
	defer func() { done(err) }()

	if code == nil || code.Code == "" {
		return fmt.Errorf("invalid authorization code")
	}

	c := *code
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[c.Code] = &c

	s.logger.Debug("Saved authorization code",
		"client_id", c.ClientID,
		"code_prefix", util.SafeTruncate(c.Code, tokenIDLogLength))
	return nil
}

// GetAuthorizationCode retrieves a code owned by clientID
func (s *Store) GetAuthorizationCode(ctx context.Context, clientID, code string) (_ *storage.AuthorizationCode, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "get_authorization_code")
	defer func() { done(err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.codes[code]
	if !ok || c.ClientID != clientID {
		return nil, storage.ErrAuthorizationCodeNotFound
	}
	out := *c
	return &out, nil
}

// InvalidateAuthorizationCode deletes a code. The lookup and delete happen
// under one write lock, so only one concurrent caller succeeds.
func (s *Store) InvalidateAuthorizationCode(ctx context.Context, code string) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "invalidate_authorization_code")
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[code]; !ok {
		return storage.ErrAuthorizationCodeNotFound
	}
	delete(s.codes, code)
	return nil
}

// ============================================================
// TokenStore Implementation
// ============================================================

// SaveAccessToken stores an access token
func (s *Store) SaveAccessToken(ctx context.Context, token *storage.AccessToken) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "save_access_token")
	defer func() { done(err) }()

	if token == nil || token.Token == "" {
		return fmt.Errorf("invalid access token")
	}

	t := *token
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTokens[t.Token] = &t
	return nil
}

// GetAccessToken retrieves an access token
func (s *Store) GetAccessToken(ctx context.Context, token string) (_ *storage.AccessToken, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "get_access_token")
	defer func() { done(err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.accessTokens[token]
	if !ok {
		return nil, storage.ErrAccessTokenNotFound
	}
	out := *t
	return &out, nil
}

// SaveRefreshToken stores a refresh token
func (s *Store) SaveRefreshToken(ctx context.Context, token *storage.RefreshToken) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "save_refresh_token")
	defer func() { done(err) }()

	if token == nil || token.Token == "" {
		return fmt.Errorf("invalid refresh token")
	}

	t := *token
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[t.Token] = &t
	return nil
}

// GetRefreshToken retrieves a refresh token owned by clientID
func (s *Store) GetRefreshToken(ctx context.Context, clientID, token string) (_ *storage.RefreshToken, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "get_refresh_token")
	defer func() { done(err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.refreshTokens[token]
	if !ok || t.ClientID != clientID {
		return nil, storage.ErrRefreshTokenNotFound
	}
	out := *t
	return &out, nil
}

// InvalidateRefreshToken deletes a refresh token under one write lock
func (s *Store) InvalidateRefreshToken(ctx context.Context, token string) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "invalidate_refresh_token")
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refreshTokens[token]; !ok {
		return storage.ErrRefreshTokenNotFound
	}
	delete(s.refreshTokens, token)
	return nil
}

// ============================================================
// UserStore Implementation
// ============================================================

// GetUser retrieves a user by username
func (s *Store) GetUser(ctx context.Context, username string) (_ *storage.User, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "get_user")
	defer func() { done(err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// VerifyCredential checks password against the user's bcrypt hash
func (s *Store) VerifyCredential(ctx context.Context, username, password string) (_ bool, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "verify_credential")
	defer func() { done(err) }()

	s.mu.RLock()
	var hash string
	if u, ok := s.users[username]; ok {
		hash = u.PasswordHash
	}
	s.mu.RUnlock()

	return storage.CompareSecret(hash, password), nil
}

// ============================================================
// Cleanup
// ============================================================

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired codes and access tokens, and refresh tokens once
// storage.ExpiredRefreshRetention has passed since their expiry
func (s *Store) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	cleaned := 0
	for k, c := range s.codes {
		if security.IsExpired(c.ExpiresAt, now) {
			delete(s.codes, k)
			cleaned++
		}
	}
	for k, t := range s.accessTokens {
		if security.IsExpired(t.ExpiresAt, now) {
			delete(s.accessTokens, k)
			cleaned++
		}
	}
	for k, t := range s.refreshTokens {
		if security.IsExpiredWithGracePeriod(t.ExpiresAt, now, storage.ExpiredRefreshRetention) {
			delete(s.refreshTokens, k)
			cleaned++
		}
	}

	if cleaned > 0 {
		s.logger.Debug("Cleaned up expired entries", "count", cleaned)
	}
}
