package server

import (
	"context"
)

// tokenResponseType is the implicit flow (RFC 6749 section 4.2.2). The
// token is returned in the redirect fragment without a refresh token.
type tokenResponseType struct {
	issuer *TokenIssuer
}

func newTokenResponseType(s *Server) ResponseTypeHandler {
	return &tokenResponseType{issuer: s.issuer}
}

func (h *tokenResponseType) ResponseType() string { return ResponseTypeToken }

func (h *tokenResponseType) UsesFragment() bool { return true }

func (h *tokenResponseType) Handle(ctx context.Context, authz *AuthorizationContext) (*AuthorizeResponse, error) {
	token, err := h.issuer.Issue(ctx, &Grant{
		ClientID: authz.Client.ClientID,
		UserID:   authz.UserID,
		Scope:    authz.Scope,
	})
	if err != nil {
		return nil, err
	}

	return &AuthorizeResponse{
		RedirectURI: authz.RedirectURI,
		State:       authz.State,
		Token:       token,
	}, nil
}
