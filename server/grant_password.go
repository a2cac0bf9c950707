package server

import (
	"context"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/giantswarm/oauth2-server/storage"
)

// passwordGrant exchanges resource owner credentials (RFC 6749 section 4.3).
type passwordGrant struct {
	users  storage.UserStore
	scopes *ScopeResolver
	logger *slog.Logger
}

func newPasswordGrant(s *Server) GrantValidator {
	return &passwordGrant{users: s.users, scopes: s.scopes, logger: s.logger}
}

func (g *passwordGrant) GrantType() string { return GrantTypePassword }

func (g *passwordGrant) Validate(ctx context.Context, req *TokenRequest) (*Grant, error) {
	username, err := req.require(ParamUsername)
	if err != nil {
		return nil, err
	}
	password, err := req.require(ParamPassword)
	if err != nil {
		return nil, err
	}
	// Composed and decomposed forms of the same name must find the same user.
	username = norm.NFC.String(username)

	invalid := func() *Error {
		return ErrInvalidGrant("invalid resource owner credentials")
	}

	user, err := g.users.GetUser(ctx, username)
	if err != nil {
		g.logger.Debug("User lookup failed", "client_id", req.Client.ClientID, "error", err)
		return nil, storageError(err, invalid)
	}

	ok, err := g.users.VerifyCredential(ctx, user.Username, password)
	if err != nil {
		return nil, storageError(err, invalid)
	}
	if !ok {
		g.logger.Debug("Resource owner credential rejected", "client_id", req.Client.ClientID)
		return nil, invalid()
	}

	scope, err := optionalScope(ctx, g.scopes, req)
	if err != nil {
		return nil, err
	}

	return &Grant{
		ClientID:          req.Client.ClientID,
		UserID:            user.Username,
		Scope:             scope,
		IssueRefreshToken: true,
	}, nil
}
