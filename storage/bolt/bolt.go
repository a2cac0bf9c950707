package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/giantswarm/oauth2-server/instrumentation"
	"github.com/giantswarm/oauth2-server/internal/util"
	"github.com/giantswarm/oauth2-server/security"
	"github.com/giantswarm/oauth2-server/storage"
)

const (
	storageType = "bolt"

	// dirPerm is the permission mode for the database directory.
	dirPerm = fs.FileMode(0o700)

	// filePerm is the permission mode for the database file.
	filePerm = fs.FileMode(0o600)

	// openTimeout is the maximum time to wait for the bolt file lock.
	openTimeout = 5 * time.Second

	// DefaultCleanupInterval is how often expired codes and tokens are purged.
	DefaultCleanupInterval = time.Minute
)

var (
	clientsBucket       = []byte("clients")
	scopesBucket        = []byte("scopes")
	usersBucket         = []byte("users")
	codesBucket         = []byte("authorization_codes")
	accessTokensBucket  = []byte("access_tokens")
	refreshTokensBucket = []byte("refresh_tokens")

	allBuckets = [][]byte{
		clientsBucket, scopesBucket, usersBucket,
		codesBucket, accessTokensBucket, refreshTokensBucket,
	}
)

// Store persists all entities in a single bbolt file. Codes and tokens are
// keyed by the SHA-256 of their value, so raw credentials never reach disk.
type Store struct {
	db     *bolt.DB
	inst   *instrumentation.Instrumentation
	now    func() time.Time
	logger *slog.Logger

	stopCleanup chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// Compile-time interface check
var _ storage.Store = (*Store)(nil)

// Open opens the database at path, creating it and its buckets if needed,
// and starts the expiry cleanup loop. A cleanupInterval of zero uses
// DefaultCleanupInterval.
func Open(path string, cleanupInterval time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := bolt.Open(path, filePerm, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing bolt database: %w", err)
	}

	s := &Store{
		db:          db,
		now:         time.Now,
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop(cleanupInterval)

	logger.Info("Opened bolt storage", "path", path)
	return s, nil
}

// SetInstrumentation enables tracing and metrics for storage operations
func (s *Store) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.inst = inst
}

// Close stops the cleanup loop and closes the database.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
	s.wg.Wait()
	return s.db.Close()
}

// wrap maps bolt failures onto storage sentinels.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, berrors.ErrDatabaseNotOpen) || errors.Is(err, berrors.ErrTimeout) {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	return err
}

func (s *Store) put(bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return wrap(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, data)
	}))
}

// get unmarshals the record at key into v. It returns notFound when the key
// is absent.
func (s *Store) get(bucket, key []byte, v any, notFound error) error {
	return wrap(s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get(key)
		if data == nil {
			return notFound
		}
		return json.Unmarshal(data, v)
	}))
}

// take deletes key inside a single write transaction. Only the caller that
// observes the key gets nil.
func (s *Store) take(bucket, key []byte, notFound error) error {
	return wrap(s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get(key) == nil {
			return notFound
		}
		return b.Delete(key)
	}))
}

func hashedKey(value string) []byte {
	return []byte(util.HashKey(value))
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
	return s.put(clientsBucket, []byte(c.ClientID), &c)
}

// SaveScope registers a scope
func (s *Store) SaveScope(ctx context.Context, scope *storage.Scope) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "save_scope")
	defer func() { done(err) }()

	if scope == nil || scope.Name == "" {
		return fmt.Errorf("invalid scope")
	}
	return s.put(scopesBucket, []byte(scope.Name), scope)
}

// SaveUser registers or replaces a user
func (s *Store) SaveUser(ctx context.Context, user *storage.User) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "save_user")
	defer func() { done(err) }()

	if user == nil || user.Username == "" {
		return fmt.Errorf("invalid user")
	}
	return s.put(usersBucket, []byte(user.Username), user)
}

// ============================================================
// ClientStore / ScopeStore / UserStore
// ============================================================

// GetClient retrieves a client by ID
func (s *Store) GetClient(ctx context.Context, clientID string) (_ *storage.Client, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "get_client")
	defer func() { done(err) }()

	var c storage.Client
	if err := s.get(clientsBucket, []byte(clientID), &c, storage.ErrClientNotFound); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateClientSecret checks the secret against the stored bcrypt hash
func (s *Store) ValidateClientSecret(ctx context.Context, clientID, clientSecret string) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "validate_client_secret")
	defer func() { done(err) }()

	var c storage.Client
	err = s.get(clientsBucket, []byte(clientID), &c, storage.ErrClientNotFound)
	if err != nil && !errors.Is(err, storage.ErrClientNotFound) {
		return err
	}
	if !storage.CompareSecret(c.ClientSecretHash, clientSecret) {
		return storage.ErrInvalidCredentials
	}
	return nil
}

// GetScope retrieves a registered scope
func (s *Store) GetScope(ctx context.Context, name string) (_ *storage.Scope, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "get_scope")
	defer func() { done(err) }()

	var sc storage.Scope
	if err := s.get(scopesBucket, []byte(name), &sc, storage.ErrScopeNotFound); err != nil {
		return nil, err
	}
	return &sc, nil
}

// GetUser retrieves a user by username
func (s *Store) GetUser(ctx context.Context, username string) (_ *storage.User, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "get_user")
	defer func() { done(err) }()

	var u storage.User
	if err := s.get(usersBucket, []byte(username), &u, storage.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &u, nil
}

// VerifyCredential checks password against the user's bcrypt hash
func (s *Store) VerifyCredential(ctx context.Context, username, password string) (_ bool, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "verify_credential")
	defer func() { done(err) }()

	var u storage.User
	err = s.get(usersBucket, []byte(username), &u, storage.ErrUserNotFound)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		return false, err
	}
	return storage.CompareSecret(u.PasswordHash, password), nil
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
	rec := *code
	rec.Code = ""
	return s.put(codesBucket, hashedKey(code.Code), &rec)
}

// GetAuthorizationCode retrieves a code owned by clientID
func (s *Store) GetAuthorizationCode(ctx context.Context, clientID, code string) (_ *storage.AuthorizationCode, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "get_authorization_code")
	defer func() { done(err) }()

	var rec storage.AuthorizationCode
	if err := s.get(codesBucket, hashedKey(code), &rec, storage.ErrAuthorizationCodeNotFound); err != nil {
		return nil, err
	}
	if rec.ClientID != clientID {
		return nil, storage.ErrAuthorizationCodeNotFound
	}
	rec.Code = code
	return &rec, nil
}

// InvalidateAuthorizationCode deletes a code in one write transaction
func (s *Store) InvalidateAuthorizationCode(ctx context.Context, code string) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "invalidate_authorization_code")
	defer func() { done(err) }()

	return s.take(codesBucket, hashedKey(code), storage.ErrAuthorizationCodeNotFound)
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
	rec := *token
	rec.Token = ""
	return s.put(accessTokensBucket, hashedKey(token.Token), &rec)
}

// GetAccessToken retrieves an access token
func (s *Store) GetAccessToken(ctx context.Context, token string) (_ *storage.AccessToken, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "get_access_token")
	defer func() { done(err) }()

	var rec storage.AccessToken
	if err := s.get(accessTokensBucket, hashedKey(token), &rec, storage.ErrAccessTokenNotFound); err != nil {
		return nil, err
	}
	rec.Token = token
	return &rec, nil
}

// SaveRefreshToken stores a refresh token
func (s *Store) SaveRefreshToken(ctx context.Context, token *storage.RefreshToken) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "save_refresh_token")
	defer func() { done(err) }()

	if token == nil || token.Token == "" {
		return fmt.Errorf("invalid refresh token")
	}
	rec := *token
	rec.Token = ""
	return s.put(refreshTokensBucket, hashedKey(token.Token), &rec)
}

// GetRefreshToken retrieves a refresh token owned by clientID
func (s *Store) GetRefreshToken(ctx context.Context, clientID, token string) (_ *storage.RefreshToken, err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "get_refresh_token")
	defer func() { done(err) }()

	var rec storage.RefreshToken
	if err := s.get(refreshTokensBucket, hashedKey(token), &rec, storage.ErrRefreshTokenNotFound); err != nil {
		return nil, err
	}
	if rec.ClientID != clientID {
		return nil, storage.ErrRefreshTokenNotFound
	}
	rec.Token = token
	return &rec, nil
}

// InvalidateRefreshToken deletes a refresh token in one write transaction
func (s *Store) InvalidateRefreshToken(ctx context.Context, token string) (err error) {
	_, done := s.inst.StartStorageOperation(ctx, storageType, "invalidate_refresh_token")
	defer func() { done(err) }()

	return s.take(refreshTokensBucket, hashedKey(token), storage.ErrRefreshTokenNotFound)
}

// ============================================================
// Cleanup
// ============================================================

func (s *Store) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			if n, err := s.purgeExpired(); err != nil {
				s.logger.Warn("Failed to purge expired entries", "error", err)
			} else if n > 0 {
				s.logger.Debug("Cleaned up expired entries", "count", n)
			}
		}
	}
}

// expiring is the subset of a stored record needed to decide expiry.
type expiring struct {
	ExpiresAt time.Time
}

// purgeExpired removes expired codes and access tokens, and refresh tokens
// past storage.ExpiredRefreshRetention. It returns how many were removed.
func (s *Store) purgeExpired() (int, error) {
	now := s.now()
	removed := 0

	retention := map[string]time.Duration{
		string(refreshTokensBucket): storage.ExpiredRefreshRetention,
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{codesBucket, accessTokensBucket, refreshTokensBucket} {
			b := tx.Bucket(name)
			grace := retention[string(name)]
			var stale [][]byte
			err := b.ForEach(func(k, v []byte) error {
				var rec expiring
				if err := json.Unmarshal(v, &rec); err != nil {
					return err
				}
				if security.IsExpiredWithGracePeriod(rec.ExpiresAt, now, grace) {
					stale = append(stale, append([]byte(nil), k...))
				}
				return nil
			})
			if err != nil {
				return err
			}
			for _, k := range stale {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
			removed += len(stale)
		}
		return nil
	})
	return removed, wrap(err)
}
