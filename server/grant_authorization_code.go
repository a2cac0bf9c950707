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

// authorizationCodeGrant exchanges a single-use authorization code
// (RFC 6749 section 4.1.3).
type authorizationCodeGrant struct {
	codes  storage.CodeStore
	now    func() time.Time
	logger *slog.Logger
}

func newAuthorizationCodeGrant(s *Server) GrantValidator {
	return &authorizationCodeGrant{codes: s.codes, now: s.now, logger: s.logger}
}

func (g *authorizationCodeGrant) GrantType() string { return GrantTypeAuthorizationCode }

func (g *authorizationCodeGrant) Validate(ctx context.Context, req *TokenRequest) (*Grant, error) {
	value, err := req.require(ParamCode)
	if err != nil {
		return nil, err
	}
	clientID := req.Client.ClientID
	codePrefix := util.SafeTruncate(value, tokenIDLogLength)

	code, err := g.codes.GetAuthorizationCode(ctx, clientID, value)
	if err != nil {
		g.logger.Debug("Authorization code lookup failed", "client_id", clientID, "code_prefix", codePrefix, "error", err)
		return nil, storageError(err, func() *Error {
			return ErrInvalidGrant("authorization code is invalid")
		})
	}

	if security.IsExpired(code.ExpiresAt, g.now()) {
		g.logger.Debug("Authorization code expired", "client_id", clientID, "code_prefix", codePrefix)
		return nil, ErrInvalidGrant("authorization code has expired")
	}

	if uri, ok := req.Params[ParamRedirectURI]; ok && uri != code.RedirectURI {
		return nil, ErrInvalidGrant("redirect_uri does not match the authorization request")
	}

	// Single use: only the caller that wins the delete may issue tokens.
	if err := g.codes.InvalidateAuthorizationCode(ctx, value); err != nil {
		if errors.Is(err, storage.ErrAuthorizationCodeNotFound) {
			g.logger.Warn("Authorization code already used", "client_id", clientID, "code_prefix", codePrefix)
		}
		return nil, storageError(err, func() *Error {
			return ErrInvalidGrant("authorization code is invalid")
		})
	}

	return &Grant{
		ClientID:          clientID,
		UserID:            code.UserID,
		Scope:             code.Scope,
		IssueRefreshToken: true,
	}, nil
}
