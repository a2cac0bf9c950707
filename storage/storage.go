package storage

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=mock/mock_storage.go -package=mock github.com/giantswarm/oauth2-server/storage ClientStore,ScopeStore,CodeStore,TokenStore,UserStore

// ExpiredRefreshRetention is how long backends keep a refresh token after it
// expires. A late refresh attempt inside the window is reported as expired
// rather than unknown.
const ExpiredRefreshRetention = 24 * time.Hour

// Sentinel errors returned by every backend. Callers use errors.Is.
var (
	ErrClientNotFound            = errors.New("client not found")
	ErrScopeNotFound             = errors.New("scope not found")
	ErrAuthorizationCodeNotFound = errors.New("authorization code not found")
	ErrAccessTokenNotFound       = errors.New("access token not found")
	ErrRefreshTokenNotFound      = errors.New("refresh token not found")
	ErrUserNotFound              = errors.New("user not found")

	// ErrInvalidCredentials is returned by ValidateClientSecret when the
	// secret does not match. It does not reveal whether the client exists.
	ErrInvalidCredentials = errors.New("invalid client credentials")

	// ErrUnavailable marks a transient backend failure (connection refused,
	// timeout, closed database). A retry of the same request may succeed.
	ErrUnavailable = errors.New("storage unavailable")
)

// Client is a registered OAuth client.
type Client struct {
	ClientID string

	// ClientSecretHash is the bcrypt hash of the client secret.
	// Empty for public clients.
	ClientSecretHash string

	// RedirectURI is the single registered redirect URI (optional).
	RedirectURI string

	CreatedAt time.Time
}

// IsConfidential reports whether the client holds a secret.
func (c *Client) IsConfidential() bool {
	return c.ClientSecretHash != ""
}

// Scope is a registered permission unit.
type Scope struct {
	Name string
}

// AuthorizationCode is a single-use code issued by the authorization endpoint.
type AuthorizationCode struct {
	Code        string
	ClientID    string
	UserID      string
	RedirectURI string
	Scope       string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// AccessToken is an issued access token.
type AccessToken struct {
	Token     string
	TokenType string
	ClientID  string
	UserID    string
	Scope     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RefreshToken is an issued refresh token. A zero ExpiresAt never expires.
type RefreshToken struct {
	Token     string
	ClientID  string
	UserID    string
	Scope     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// User is a resource owner known to the user store.
type User struct {
	Username string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string
}

// ClientStore looks up registered clients.
// All methods accept context.Context for tracing and cancellation.
type ClientStore interface {
	// GetClient returns ErrClientNotFound if no client has the given ID.
	GetClient(ctx context.Context, clientID string) (*Client, error)

	// ValidateClientSecret returns ErrInvalidCredentials when the secret does
	// not verify against the stored hash.
	ValidateClientSecret(ctx context.Context, clientID, clientSecret string) error
}

// ScopeStore looks up registered scopes.
type ScopeStore interface {
	// GetScope returns ErrScopeNotFound if the scope is not registered.
	GetScope(ctx context.Context, name string) (*Scope, error)
}

// CodeStore persists authorization codes.
type CodeStore interface {
	SaveAuthorizationCode(ctx context.Context, code *AuthorizationCode) error

	// GetAuthorizationCode returns ErrAuthorizationCodeNotFound unless a code
	// with this value exists and belongs to clientID.
	GetAuthorizationCode(ctx context.Context, clientID, code string) (*AuthorizationCode, error)

	// InvalidateAuthorizationCode deletes the code. It MUST be an atomic
	// compare-and-delete: when several callers race, exactly one gets nil and
	// the others get ErrAuthorizationCodeNotFound.
	InvalidateAuthorizationCode(ctx context.Context, code string) error
}

// TokenStore persists access and refresh tokens.
type TokenStore interface {
	SaveAccessToken(ctx context.Context, token *AccessToken) error

	// GetAccessToken returns ErrAccessTokenNotFound if the token is unknown.
	GetAccessToken(ctx context.Context, token string) (*AccessToken, error)

	SaveRefreshToken(ctx context.Context, token *RefreshToken) error

	// GetRefreshToken returns ErrRefreshTokenNotFound unless a refresh token
	// with this value exists and belongs to clientID. Expired tokens are
	// still returned so the caller can distinguish expiry from absence.
	GetRefreshToken(ctx context.Context, clientID, token string) (*RefreshToken, error)

	// InvalidateRefreshToken deletes the refresh token with the same atomic
	// guarantee as InvalidateAuthorizationCode.
	InvalidateRefreshToken(ctx context.Context, token string) error
}

// UserStore looks up resource owners and verifies their credentials.
type UserStore interface {
	// GetUser returns ErrUserNotFound if the username is unknown.
	GetUser(ctx context.Context, username string) (*User, error)

	// VerifyCredential reports whether password is the user's credential.
	// A false result with a nil error is a mismatch.
	VerifyCredential(ctx context.Context, username, password string) (bool, error)
}

// Registry administers the read-only entities of the core. It is used by
// seeding and by operators, never by request handling.
type Registry interface {
	SaveClient(ctx context.Context, client *Client) error
	SaveScope(ctx context.Context, scope *Scope) error
	SaveUser(ctx context.Context, user *User) error
}

// Store is the union every backend implements.
type Store interface {
	ClientStore
	ScopeStore
	CodeStore
	TokenStore
	UserStore
	Registry
}
