package valkey

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	valkeygo "github.com/valkey-io/valkey-go"

	"github.com/giantswarm/oauth2-server/instrumentation"
	"github.com/giantswarm/oauth2-server/internal/util"
	"github.com/giantswarm/oauth2-server/security"
	"github.com/giantswarm/oauth2-server/storage"
)

const (
	// DefaultKeyPrefix is the default prefix for all Valkey keys
	DefaultKeyPrefix = "oauth2:"

	storageType = "valkey"

	// connectionVerifyTimeout is the timeout for initial connection verification
	connectionVerifyTimeout = 5 * time.Second

	// minTTL is the smallest expiry set on a key. Valkey rejects zero.
	minTTL = time.Second
)

// Config holds configuration for the Valkey storage backend.
type Config struct {
	// Address is the Valkey server address (required), e.g., "localhost:6379"
	Address string

	// Password is the optional password for Valkey authentication
	Password string

	// DB is the optional database number (default 0)
	DB int

	// KeyPrefix is the prefix for all keys (default "oauth2:")
	KeyPrefix string

	// TLS is the optional TLS configuration for encrypted connections
	TLS *tls.Config

	// Logger is the optional structured logger (default: slog.Default())
	Logger *slog.Logger
}

// Store is a Valkey-backed implementation of all storage interfaces.
// Codes and tokens are keyed by the SHA-256 of their value and expire
// through native key TTLs.
type Store struct {
	client valkeygo.Client
	prefix string
	logger *slog.Logger
	inst   *instrumentation.Instrumentation
	sealer *security.RecordSealer
	now    func() time.Time
}

// Compile-time interface check
var _ storage.Store = (*Store)(nil)

// New creates a new Valkey-backed storage instance.
// Returns an error if the connection cannot be established.
func New(cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("valkey address is required")
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := valkeygo.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.TLS != nil {
		opts.TLSConfig = cfg.TLS
	}

	client, err := valkeygo.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionVerifyTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	logger.Info("Connected to Valkey storage",
		"address", cfg.Address,
		"db", cfg.DB,
		"prefix", prefix)

	return &Store{
		client: client,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Close closes the Valkey client connection.
func (s *Store) Close() {
	s.client.Close()
	s.logger.Info("Valkey storage connection closed")
}

// SetInstrumentation enables tracing and metrics for storage operations
func (s *Store) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.inst = inst
}

// SetRecordSealer enables encryption at rest of stored records.
func (s *Store) SetRecordSealer(sealer *security.RecordSealer) {
	s.sealer = sealer
	if sealer.Enabled() {
		s.logger.Info("Record encryption at rest enabled for Valkey storage")
	}
}

// ============================================================
// Key Helpers
// ============================================================

func (s *Store) clientKey(clientID string) string  { return s.prefix + "client:" + clientID }
func (s *Store) scopeKey(name string) string        { return s.prefix + "scope:" + name }
func (s *Store) userKey(username string) string     { return s.prefix + "user:" + username }
func (s *Store) codeKey(code string) string         { return s.prefix + "code:" + util.HashKey(code) }
func (s *Store) accessTokenKey(token string) string { return s.prefix + "access:" + util.HashKey(token) }
func (s *Store) refreshKey(token string) string     { return s.prefix + "refresh:" + util.HashKey(token) }

// ============================================================
// Record Helpers
// ============================================================

// wrap maps connection failures onto storage.ErrUnavailable.
func wrap(err error) error {
	return storage.Unavailable(err)
}

// put stores v under key. A positive ttl sets a key expiry.
func (s *Store) put(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data, err = s.sealer.Seal(key, data)
	if err != nil {
		return err
	}

	if ttl > 0 {
		err = s.client.Do(ctx, s.client.B().Set().Key(key).Value(string(data)).Ex(max(ttl, minTTL)).Build()).Error()
	} else {
		err = s.client.Do(ctx, s.client.B().Set().Key(key).Value(string(data)).Build()).Error()
	}
	if err != nil {
		return wrap(fmt.Errorf("failed to store %s: %w", key, err))
	}
	return nil
}

// get loads the record at key into v, returning notFound when absent.
func (s *Store) get(ctx context.Context, key string, v any, notFound error) error {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if valkeygo.IsValkeyNil(err) {
			return notFound
		}
		return wrap(fmt.Errorf("failed to load record: %w", err))
	}

	plain, err := s.sealer.Open(key, []byte(data))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return nil
}

// take deletes key. DEL is atomic on the server, so only one caller sees a
// count of one.
func (s *Store) take(ctx context.Context, key string, notFound error) error {
	n, err := s.client.Do(ctx, s.client.B().Del().Key(key).Build()).AsInt64()
	if err != nil {
		return wrap(fmt.Errorf("failed to delete record: %w", err))
	}
	if n != 1 {
		return notFound
	}
	return nil
}

// ttlUntil returns the key expiry for a record expiring at t. Zero means
// no expiry.
func (s *Store) ttlUntil(t time.Time, retain time.Duration) time.Duration {
	if t.IsZero() {
		return 0
	}
	return max(t.Sub(s.now())+retain, minTTL)
}

// ============================================================
// Registry Implementation
// ============================================================

// SaveClient registers or replaces a client
func (s *Store) SaveClient(ctx context.Context, client *storage.Client) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "save_client")
	defer func() { done(err) }()

	if client == nil || client.ClientID == "" {
		return fmt.Errorf("invalid client")
	}
	c := *client
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	return s.put(ctx, s.clientKey(c.ClientID), &c, 0)
}

// SaveScope registers a scope
func (s *Store) SaveScope(ctx context.Context, scope *storage.Scope) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "save_scope")
	defer func() { done(err) }()

	if scope == nil || scope.Name == "" {
		return fmt.Errorf("invalid scope")
	}
	return s.put(ctx, s.scopeKey(scope.Name), scope, 0)
}

// SaveUser registers or replaces a user
func (s *Store) SaveUser(ctx context.Context, user *storage.User) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "save_user")
	defer func() { done(err) }()

	if user == nil || user.Username == "" {
		return fmt.Errorf("invalid user")
	}
	return s.put(ctx, s.userKey(user.Username), user, 0)
}

// ============================================================
// ClientStore / ScopeStore / UserStore
// ============================================================

// GetClient retrieves a client by ID
func (s *Store) GetClient(ctx context.Context, clientID string) (_ *storage.Client, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "get_client")
	defer func() { done(err) }()

	var c storage.Client
	if err := s.get(ctx, s.clientKey(clientID), &c, storage.ErrClientNotFound); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateClientSecret checks the secret against the stored bcrypt hash
func (s *Store) ValidateClientSecret(ctx context.Context, clientID, clientSecret string) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "validate_client_secret")
	defer func() { done(err) }()

	var c storage.Client
	err = s.get(ctx, s.clientKey(clientID), &c, storage.ErrClientNotFound)
	if err != nil && !errors.Is(err, storage.ErrClientNotFound) {
		return err
	}
	if !storage.CompareSecret(c.ClientSecretHash, clientSecret) {
		s.logger.Debug("Client secret mismatch", "client_id", clientID)
		return storage.ErrInvalidCredentials
	}
	return nil
}

// GetScope retrieves a registered scope
func (s *Store) GetScope(ctx context.Context, name string) (_ *storage.Scope, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "get_scope")
	defer func() { done(err) }()

	var sc storage.Scope
	if err := s.get(ctx, s.scopeKey(name), &sc, storage.ErrScopeNotFound); err != nil {
		return nil, err
	}
	return &sc, nil
}

// GetUser retrieves a user by username
func (s *Store) GetUser(ctx context.Context, username string) (_ *storage.User, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "get_user")
	defer func() { done(err) }()

	var u storage.User
	if err := s.get(ctx, s.userKey(username), &u, storage.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &u, nil
}

// VerifyCredential checks password against the user's bcrypt hash
func (s *Store) VerifyCredential(ctx context.Context, username, password string) (_ bool, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "verify_credential")
	defer func() { done(err) }()

	var u storage.User
	err = s.get(ctx, s.userKey(username), &u, storage.ErrUserNotFound)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		return false, err
	}
	return storage.CompareSecret(u.PasswordHash, password), nil
}

// ============================================================
// CodeStore Implementation
// ============================================================

// SaveAuthorizationCode stores a code with a TTL matching its expiry
func (s *Store) SaveAuthorizationCode(ctx context.Context, code *storage.AuthorizationCode) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "save_authorization_code")
	defer func() { done(err) }()

	if code == nil || code.Code == "" {
		return fmt.Errorf("invalid authorization code")
	}
	rec := *code
	rec.Code = ""
	return s.put(ctx, s.codeKey(code.Code), &rec, s.ttlUntil(code.ExpiresAt, 0))
}

// GetAuthorizationCode retrieves a code owned by clientID
func (s *Store) GetAuthorizationCode(ctx context.Context, clientID, code string) (_ *storage.AuthorizationCode, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "get_authorization_code")
	defer func() { done(err) }()

	var rec storage.AuthorizationCode
	if err := s.get(ctx, s.codeKey(code), &rec, storage.ErrAuthorizationCodeNotFound); err != nil {
		return nil, err
	}
	if rec.ClientID != clientID {
		return nil, storage.ErrAuthorizationCodeNotFound
	}
	rec.Code = code
	return &rec, nil
}

// InvalidateAuthorizationCode deletes a code
func (s *Store) InvalidateAuthorizationCode(ctx context.Context, code string) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "invalidate_authorization_code")
	defer func() { done(err) }()

	return s.take(ctx, s.codeKey(code), storage.ErrAuthorizationCodeNotFound)
}

// ============================================================
// TokenStore Implementation
// ============================================================

// SaveAccessToken stores an access token with a TTL matching its expiry
func (s *Store) SaveAccessToken(ctx context.Context, token *storage.AccessToken) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "save_access_token")
	defer func() { done(err) }()

	if token == nil || token.Token == "" {
		return fmt.Errorf("invalid access token")
	}
	rec := *token
	rec.Token = ""
	return s.put(ctx, s.accessTokenKey(token.Token), &rec, s.ttlUntil(token.ExpiresAt, 0))
}

// GetAccessToken retrieves an access token
func (s *Store) GetAccessToken(ctx context.Context, token string) (_ *storage.AccessToken, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "get_access_token")
	defer func() { done(err) }()

	var rec storage.AccessToken
	if err := s.get(ctx, s.accessTokenKey(token), &rec, storage.ErrAccessTokenNotFound); err != nil {
		return nil, err
	}
	rec.Token = token
	return &rec, nil
}

// SaveRefreshToken stores a refresh token. Tokens without an expiry are
// stored without a TTL.
func (s *Store) SaveRefreshToken(ctx context.Context, token *storage.RefreshToken) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "save_refresh_token")
	defer func() { done(err) }()

	if token == nil || token.Token == "" {
		return fmt.Errorf("invalid refresh token")
	}
	rec := *token
	rec.Token = ""
	return s.put(ctx, s.refreshKey(token.Token), &rec, s.ttlUntil(token.ExpiresAt, storage.ExpiredRefreshRetention))
}

// GetRefreshToken retrieves a refresh token owned by clientID
func (s *Store) GetRefreshToken(ctx context.Context, clientID, token string) (_ *storage.RefreshToken, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "get_refresh_token")
	defer func() { done(err) }()

	var rec storage.RefreshToken
	if err := s.get(ctx, s.refreshKey(token), &rec, storage.ErrRefreshTokenNotFound); err != nil {
		return nil, err
	}
	if rec.ClientID != clientID {
		return nil, storage.ErrRefreshTokenNotFound
	}
	rec.Token = token
	return &rec, nil
}

// InvalidateRefreshToken deletes a refresh token
func (s *Store) InvalidateRefreshToken(ctx context.Context, token string) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "invalidate_refresh_token")
	defer func() { done(err) }()

	return s.take(ctx, s.refreshKey(token), storage.ErrRefreshTokenNotFound)
}
