package server

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/oauth2-server/internal/util"
	"github.com/giantswarm/oauth2-server/storage"
)

// Token type labels (RFC 6749 section 7.1).
const (
	TokenTypeBearer = "bearer"
	TokenTypeMAC    = "mac"
)

// tokenIDLogLength is the number of characters of a token included in logs
const tokenIDLogLength = 8

// TokenType is an access token presentation scheme. Only the label is
// carried; no MAC signing is performed.
type TokenType interface {
	TokenType() string
}

// BearerTokenType is the default token type.
type BearerTokenType struct{}

// TokenType returns "bearer"
func (BearerTokenType) TokenType() string { return TokenTypeBearer }

// MacTokenType labels tokens as MAC tokens.
type MacTokenType struct{}

// TokenType returns "mac"
func (MacTokenType) TokenType() string { return TokenTypeMAC }

var tokenTypes = map[string]TokenType{
	TokenTypeBearer: BearerTokenType{},
	TokenTypeMAC:    MacTokenType{},
}

// TokenResponse is the RFC 6749 section 5.1 success payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// generateToken mints an opaque token value: 32 bytes from crypto/rand,
// base64url encoded.
func generateToken() string {
	return oauth2.GenerateVerifier()
}

// TokenIssuer mints and persists access and refresh tokens.
type TokenIssuer struct {
	tokens    storage.TokenStore
	config    *Config
	tokenType TokenType
	now       func() time.Time
	generate  func() string
	logger    *slog.Logger
}

// NewTokenIssuer creates an issuer. config must already have defaults applied.
func NewTokenIssuer(tokens storage.TokenStore, config *Config, logger *slog.Logger) *TokenIssuer {
	if logger == nil {
		logger = slog.Default()
	}
	tokenType, ok := tokenTypes[config.TokenType]
	if !ok {
		tokenType = BearerTokenType{}
	}
	return &TokenIssuer{
		tokens:    tokens,
		config:    config,
		tokenType: tokenType,
		now:       time.Now,
		generate:  generateToken,
		logger:    logger,
	}
}

// Issue mints an access token for grant and, when the grant allows it, a
// refresh token. Both are persisted before the payload is returned.
func (i *TokenIssuer) Issue(ctx context.Context, grant *Grant) (*TokenResponse, error) {
	now := i.now()
	lifetime := secondsToDuration(i.config.AccessTokenTTL)

	access := &storage.AccessToken{
		Token:     i.generate(),
		TokenType: i.tokenType.TokenType(),
		ClientID:  grant.ClientID,
		UserID:    grant.UserID,
		Scope:     grant.Scope,
		ExpiresAt: now.Add(lifetime),
		CreatedAt: now,
	}
	if err := i.tokens.SaveAccessToken(ctx, access); err != nil {
		i.logger.Error("Failed to save access token", "client_id", grant.ClientID, "error", err)
		return nil, storageError(err, nil)
	}

	resp := &TokenResponse{
		AccessToken: access.Token,
		TokenType:   access.TokenType,
		ExpiresIn:   i.config.AccessTokenTTL,
		Scope:       grant.Scope,
	}

	switch {
	case grant.IssueRefreshToken:
		refresh := &storage.RefreshToken{
			Token:     i.generate(),
			ClientID:  grant.ClientID,
			UserID:    grant.UserID,
			Scope:     grant.Scope,
			CreatedAt: now,
		}
		if i.config.RefreshTokenTTL > 0 {
			refresh.ExpiresAt = now.Add(secondsToDuration(i.config.RefreshTokenTTL))
		}
		if err := i.tokens.SaveRefreshToken(ctx, refresh); err != nil {
			i.logger.Error("Failed to save refresh token", "client_id", grant.ClientID, "error", err)
			return nil, storageError(err, nil)
		}
		resp.RefreshToken = refresh.Token
	case grant.RefreshToken != "":
		resp.RefreshToken = grant.RefreshToken
	}

	i.logger.Debug("Issued access token",
		"client_id", grant.ClientID,
		"token_prefix", util.SafeTruncate(access.Token, tokenIDLogLength),
		"refresh", resp.RefreshToken != "")
	return resp, nil
}
