package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/giantswarm/oauth2-server/internal/util"
	"github.com/giantswarm/oauth2-server/security"
	"github.com/giantswarm/oauth2-server/storage"
)

// refreshTokenGrant exchanges a refresh token for a new access token
// (RFC 6749 section 6).
type refreshTokenGrant struct {
	tokens storage.TokenStore
	scopes *ScopeResolver
	rotate bool
	now    func() time.Time
	logger *slog.Logger
}

func newRefreshTokenGrant(s *Server) GrantValidator {
	return &refreshTokenGrant{
		tokens: s.tokens,
		scopes: s.scopes,
		rotate: !s.config.DisableRefreshTokenRotation,
		now:    s.now,
		logger: s.logger,
	}
}

func (g *refreshTokenGrant) GrantType() string { return GrantTypeRefreshToken }

func (g *refreshTokenGrant) Validate(ctx context.Context, req *TokenRequest) (*Grant, error) {
	value, err := req.require(ParamRefreshToken)
	if err != nil {
		return nil, err
	}
	clientID := req.Client.ClientID
	tokenPrefix := util.SafeTruncate(value, tokenIDLogLength)

	invalid := func() *Error {
		return ErrInvalidGrant("refresh token is invalid")
	}

	token, err := g.tokens.GetRefreshToken(ctx, clientID, value)
	if err != nil {
		g.logger.Debug("Refresh token lookup failed", "client_id", clientID, "token_prefix", tokenPrefix, "error", err)
		return nil, storageError(err, invalid)
	}

	// An expired refresh token is reported as invalid_request, unlike an
	// unknown one.
	if security.IsExpired(token.ExpiresAt, g.now()) {
		g.logger.Debug("Refresh token expired", "client_id", clientID, "token_prefix", tokenPrefix)
		return nil, ErrInvalidRequest("refresh token has expired")
	}

	scope := token.Scope
	if requested, ok := req.Params[ParamScope]; ok {
		if scope, err = g.scopes.Resolve(ctx, requested); err != nil {
			return nil, err
		}
		if err := g.scopes.Narrow(scope, token.Scope); err != nil {
			return nil, err
		}
	} else if req.supplied(ParamScope) {
		return nil, ErrInvalidScope("scope is malformed")
	}

	grant := &Grant{
		ClientID: clientID,
		UserID:   token.UserID,
		Scope:    scope,
	}

	if !g.rotate {
		grant.RefreshToken = token.Token
		return grant, nil
	}

	if err := g.tokens.InvalidateRefreshToken(ctx, value); err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			g.logger.Warn("Refresh token already rotated", "client_id", clientID, "token_prefix", tokenPrefix)
		}
		return nil, storageError(err, invalid)
	}
	grant.IssueRefreshToken = true
	return grant, nil
}
