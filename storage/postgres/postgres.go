package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/giantswarm/oauth2-server/instrumentation"
	"github.com/giantswarm/oauth2-server/internal/util"
	"github.com/giantswarm/oauth2-server/storage"
)

const (
	storageType = "postgres"

	// DefaultCleanupInterval is how often expired codes and tokens are purged.
	DefaultCleanupInterval = 5 * time.Minute
)

const schema = `
CREATE TABLE IF NOT EXISTS oauth2_clients (
	client_id          TEXT PRIMARY KEY,
	client_secret_hash TEXT NOT NULL DEFAULT '',
	redirect_uri       TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS oauth2_scopes (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS oauth2_users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS oauth2_authorization_codes (
	code_hash    TEXT PRIMARY KEY,
	client_id    TEXT NOT NULL,
	user_id      TEXT NOT NULL DEFAULT '',
	redirect_uri TEXT NOT NULL DEFAULT '',
	scope        TEXT NOT NULL DEFAULT '',
	expires_at   TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS oauth2_access_tokens (
	token_hash TEXT PRIMARY KEY,
	token_type TEXT NOT NULL,
	client_id  TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT '',
	scope      TEXT NOT NULL DEFAULT '',
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS oauth2_refresh_tokens (
	token_hash TEXT PRIMARY KEY,
	client_id  TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT '',
	scope      TEXT NOT NULL DEFAULT '',
	expires_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store implements all storage interfaces on PostgreSQL.
type Store struct {
	db     *pgxpool.Pool
	inst   *instrumentation.Instrumentation
	now    func() time.Time
	logger *slog.Logger

	stopCleanup chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// Compile-time interface check
var _ storage.Store = (*Store)(nil)

// New creates a store on an existing pool. Call Migrate before first use.
func New(db *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:          db,
		now:         time.Now,
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}, nil
}

// Connect opens a pool for dsn, verifies it and creates the store.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return New(pool, logger)
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// SetInstrumentation enables tracing and metrics for storage operations
func (s *Store) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.inst = inst
}

// StartCleanup purges expired codes and tokens every interval until Close.
func (s *Store) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCleanup:
				return
			case <-ticker.C:
				n, err := s.PurgeExpired(context.Background())
				if err != nil {
					s.logger.Warn("Failed to purge expired entries", "error", err)
				} else if n > 0 {
					s.logger.Debug("Cleaned up expired entries", "count", n)
				}
			}
		}
	}()
}

// Close stops the cleanup loop and closes the pool.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
	s.wg.Wait()
	s.db.Close()
}

// PurgeExpired deletes expired codes and access tokens, and refresh tokens
// past storage.ExpiredRefreshRetention. It returns how many rows were
// removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.now()
	var total int64
	for _, q := range []struct {
		sql    string
		cutoff time.Time
	}{
		{`DELETE FROM oauth2_authorization_codes WHERE expires_at < $1`, now},
		{`DELETE FROM oauth2_access_tokens WHERE expires_at < $1`, now},
		{`DELETE FROM oauth2_refresh_tokens WHERE expires_at IS NOT NULL AND expires_at < $1`,
			now.Add(-storage.ExpiredRefreshRetention)},
	} {
		tag, err := s.db.Exec(ctx, q.sql, q.cutoff)
		if err != nil {
			return total, wrap(err, nil)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// wrap maps pgx errors onto storage sentinels.
func wrap(err, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}
	return storage.Unavailable(err)
}

// nullTime converts the zero time to SQL NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
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
	createdAt := client.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO oauth2_clients (client_id, client_secret_hash, redirect_uri, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id) DO UPDATE
		SET client_secret_hash = EXCLUDED.client_secret_hash, redirect_uri = EXCLUDED.redirect_uri`,
		client.ClientID, client.ClientSecretHash, client.RedirectURI, createdAt)
	return wrap(err, nil)
}

// SaveScope registers a scope
func (s *Store) SaveScope(ctx context.Context, scope *storage.Scope) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "save_scope")
	defer func() { done(err) }()

	if scope == nil || scope.Name == "" {
		return fmt.Errorf("invalid scope")
	}
	_, err = s.db.Exec(ctx, `INSERT INTO oauth2_scopes (name) VALUES ($1) ON CONFLICT DO NOTHING`, scope.Name)
	return wrap(err, nil)
}

// SaveUser registers or replaces a user
func (s *Store) SaveUser(ctx context.Context, user *storage.User) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "save_user")
	defer func() { done(err) }()

	if user == nil || user.Username == "" {
		return fmt.Errorf("invalid user")
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO oauth2_users (username, password_hash) VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash`,
		user.Username, user.PasswordHash)
	return wrap(err, nil)
}

// ============================================================
// ClientStore / ScopeStore / UserStore
// ============================================================

// GetClient retrieves a client by ID
func (s *Store) GetClient(ctx context.Context, clientID string) (_ *storage.Client, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "get_client")
	defer func() { done(err) }()

	c := storage.Client{ClientID: clientID}
	err = s.db.QueryRow(ctx,
		`SELECT client_secret_hash, redirect_uri, created_at FROM oauth2_clients WHERE client_id = $1`,
		clientID).Scan(&c.ClientSecretHash, &c.RedirectURI, &c.CreatedAt)
	if err != nil {
		return nil, wrap(err, storage.ErrClientNotFound)
	}
	return &c, nil
}

// ValidateClientSecret checks the secret against the stored bcrypt hash
func (s *Store) ValidateClientSecret(ctx context.Context, clientID, clientSecret string) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "validate_client_secret")
	defer func() { done(err) }()

	var hash string
	err = s.db.QueryRow(ctx,
		`SELECT client_secret_hash FROM oauth2_clients WHERE client_id = $1`, clientID).Scan(&hash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return wrap(err, nil)
	}
	if !storage.CompareSecret(hash, clientSecret) {
		return storage.ErrInvalidCredentials
	}
	return nil
}

// GetScope retrieves a registered scope
func (s *Store) GetScope(ctx context.Context, name string) (_ *storage.Scope, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "get_scope")
	defer func() { done(err) }()

	var sc storage.Scope
	err = s.db.QueryRow(ctx, `SELECT name FROM oauth2_scopes WHERE name = $1`, name).Scan(&sc.Name)
	if err != nil {
		return nil, wrap(err, storage.ErrScopeNotFound)
	}
	return &sc, nil
}

// GetUser retrieves a user by username
func (s *Store) GetUser(ctx context.Context, username string) (_ *storage.User, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "get_user")
	defer func() { done(err) }()

	u := storage.User{Username: username}
	err = s.db.QueryRow(ctx,
		`SELECT password_hash FROM oauth2_users WHERE username = $1`, username).Scan(&u.PasswordHash)
	if err != nil {
		return nil, wrap(err, storage.ErrUserNotFound)
	}
	return &u, nil
}

// VerifyCredential checks password against the user's bcrypt hash
func (s *Store) VerifyCredential(ctx context.Context, username, password string) (_ bool, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "verify_credential")
	defer func() { done(err) }()

	var hash string
	err = s.db.QueryRow(ctx,
		`SELECT password_hash FROM oauth2_users WHERE username = $1`, username).Scan(&hash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, wrap(err, nil)
	}
	return storage.CompareSecret(hash, password), nil
}

// ============================================================
// CodeStore Implementation
// ============================================================

// SaveAuthorizationCode stores an authorization code
func (s *Store) SaveAuthorizationCode(ctx context.Context, code *storage.AuthorizationCode) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "save_authorization_code")
	defer func() { done(err) }()

	if code == nil || code.Code == "" {
		return fmt.Errorf("invalid authorization code")
	}
	createdAt := code.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO oauth2_authorization_codes
			(code_hash, client_id, user_id, redirect_uri, scope, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		util.HashKey(code.Code), code.ClientID, code.UserID, code.RedirectURI, code.Scope, code.ExpiresAt, createdAt)
	return wrap(err, nil)
}

// GetAuthorizationCode retrieves a code owned by clientID
func (s *Store) GetAuthorizationCode(ctx context.Context, clientID, code string) (_ *storage.AuthorizationCode, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "get_authorization_code")
	defer func() { done(err) }()

	c := storage.AuthorizationCode{Code: code, ClientID: clientID}
	err = s.db.QueryRow(ctx, `
		SELECT user_id, redirect_uri, scope, expires_at, created_at
		FROM oauth2_authorization_codes WHERE code_hash = $1 AND client_id = $2`,
		util.HashKey(code), clientID).Scan(&c.UserID, &c.RedirectURI, &c.Scope, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		return nil, wrap(err, storage.ErrAuthorizationCodeNotFound)
	}
	return &c, nil
}

// InvalidateAuthorizationCode deletes a code. A single DELETE decides the
// race: only the statement that removes the row reports one affected row.
func (s *Store) InvalidateAuthorizationCode(ctx context.Context, code string) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "invalidate_authorization_code")
	defer func() { done(err) }()

	tag, err := s.db.Exec(ctx, `DELETE FROM oauth2_authorization_codes WHERE code_hash = $1`, util.HashKey(code))
	if err != nil {
		return wrap(err, nil)
	}
	if tag.RowsAffected() != 1 {
		return storage.ErrAuthorizationCodeNotFound
	}
	return nil
}

// ============================================================
// TokenStore Implementation
// ============================================================

// SaveAccessToken stores an access token
func (s *Store) SaveAccessToken(ctx context.Context, token *storage.AccessToken) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "save_access_token")
	defer func() { done(err) }()

	if token == nil || token.Token == "" {
		return fmt.Errorf("invalid access token")
	}
	createdAt := token.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO oauth2_access_tokens
			(token_hash, token_type, client_id, user_id, scope, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		util.HashKey(token.Token), token.TokenType, token.ClientID, token.UserID, token.Scope, token.ExpiresAt, createdAt)
	return wrap(err, nil)
}

// GetAccessToken retrieves an access token
func (s *Store) GetAccessToken(ctx context.Context, token string) (_ *storage.AccessToken, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "get_access_token")
	defer func() { done(err) }()

	t := storage.AccessToken{Token: token}
	err = s.db.QueryRow(ctx, `
		SELECT token_type, client_id, user_id, scope, expires_at, created_at
		FROM oauth2_access_tokens WHERE token_hash = $1`,
		util.HashKey(token)).Scan(&t.TokenType, &t.ClientID, &t.UserID, &t.Scope, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, wrap(err, storage.ErrAccessTokenNotFound)
	}
	return &t, nil
}

// SaveRefreshToken stores a refresh token. A zero expiry is stored as NULL.
func (s *Store) SaveRefreshToken(ctx context.Context, token *storage.RefreshToken) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "save_refresh_token")
	defer func() { done(err) }()

	if token == nil || token.Token == "" {
		return fmt.Errorf("invalid refresh token")
	}
	createdAt := token.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO oauth2_refresh_tokens
			(token_hash, client_id, user_id, scope, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		util.HashKey(token.Token), token.ClientID, token.UserID, token.Scope, nullTime(token.ExpiresAt), createdAt)
	return wrap(err, nil)
}

// GetRefreshToken retrieves a refresh token owned by clientID
func (s *Store) GetRefreshToken(ctx context.Context, clientID, token string) (_ *storage.RefreshToken, err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "get_refresh_token")
	defer func() { done(err) }()

	t := storage.RefreshToken{Token: token, ClientID: clientID}
	var expiresAt *time.Time
	err = s.db.QueryRow(ctx, `
		SELECT user_id, scope, expires_at, created_at
		FROM oauth2_refresh_tokens WHERE token_hash = $1 AND client_id = $2`,
		util.HashKey(token), clientID).Scan(&t.UserID, &t.Scope, &expiresAt, &t.CreatedAt)
	if err != nil {
		return nil, wrap(err, storage.ErrRefreshTokenNotFound)
	}
	if expiresAt != nil {
		t.ExpiresAt = *expiresAt
	}
	return &t, nil
}

// InvalidateRefreshToken deletes a refresh token with the same single
// DELETE guarantee as InvalidateAuthorizationCode.
func (s *Store) InvalidateRefreshToken(ctx context.Context, token string) (err error) {
	ctx, done := s.inst.StartStorageOperation(ctx, storageType, "invalidate_refresh_token")
	defer func() { done(err) }()

	tag, err := s.db.Exec(ctx, `DELETE FROM oauth2_refresh_tokens WHERE token_hash = $1`, util.HashKey(token))
	if err != nil {
		return wrap(err, nil)
	}
	if tag.RowsAffected() != 1 {
		return storage.ErrRefreshTokenNotFound
	}
	return nil
}
