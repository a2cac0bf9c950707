package server

import (
	"context"
)

// clientCredentialsGrant issues tokens to a confidential client acting on
// its own behalf (RFC 6749 section 4.4). No refresh token is issued.
type clientCredentialsGrant struct {
	scopes *ScopeResolver
}

func newClientCredentialsGrant(s *Server) GrantValidator {
	return &clientCredentialsGrant{scopes: s.scopes}
}

func (g *clientCredentialsGrant) GrantType() string { return GrantTypeClientCredentials }

func (g *clientCredentialsGrant) Validate(ctx context.Context, req *TokenRequest) (*Grant, error) {
	if !req.Client.IsConfidential() {
		return nil, ErrUnauthorizedClient("client_credentials requires a confidential client")
	}

	scope, err := optionalScope(ctx, g.scopes, req)
	if err != nil {
		return nil, err
	}

	return &Grant{
		ClientID: req.Client.ClientID,
		Scope:    scope,
	}, nil
}
