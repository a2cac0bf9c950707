package server

import (
	"context"

	"github.com/giantswarm/oauth2-server/storage"
)

// Grant is what a grant validator hands to the TokenIssuer: who the token is
// for and what it may do.
type Grant struct {
	ClientID string
	UserID   string
	Scope    string

	// IssueRefreshToken mints a new refresh token alongside the access token.
	IssueRefreshToken bool

	// RefreshToken is echoed back unchanged when rotation is disabled.
	RefreshToken string
}

// TokenRequest is a token endpoint request after client authentication.
type TokenRequest struct {
	Client *storage.Client

	// Params holds the grammar-filtered parameters.
	Params map[string]string

	// Raw holds the parameters as received.
	Raw map[string]string
}

// supplied reports whether the client sent a non-empty value for name,
// whether or not it passed the grammar.
func (r *TokenRequest) supplied(name string) bool {
	return r.Raw[name] != ""
}

// require returns the filtered value of name, or invalid_request when it is
// missing or malformed.
func (r *TokenRequest) require(name string) (string, error) {
	value, ok := r.Params[name]
	if !ok {
		if r.supplied(name) {
			return "", ErrInvalidRequest(name + " is malformed")
		}
		return "", ErrInvalidRequest(name + " is required")
	}
	return value, nil
}

// GrantValidator applies the business rules of one grant type.
type GrantValidator interface {
	// GrantType returns the grant_type value this validator handles
	GrantType() string

	// Validate checks the request and returns the grant to issue tokens for
	Validate(ctx context.Context, req *TokenRequest) (*Grant, error)
}

// GrantValidatorFactory builds a validator bound to the server's collaborators.
type GrantValidatorFactory func(s *Server) GrantValidator

var builtinGrantTypes = map[string]GrantValidatorFactory{
	GrantTypeAuthorizationCode: newAuthorizationCodeGrant,
	GrantTypeClientCredentials: newClientCredentialsGrant,
	GrantTypePassword:          newPasswordGrant,
	GrantTypeRefreshToken:      newRefreshTokenGrant,
}

// optionalScope resolves the scope parameter when one was sent. A scope that
// was sent but failed the grammar is invalid_scope rather than absent.
func optionalScope(ctx context.Context, scopes *ScopeResolver, req *TokenRequest) (string, error) {
	scope, ok := req.Params[ParamScope]
	if !ok {
		if req.supplied(ParamScope) {
			return "", ErrInvalidScope("scope is malformed")
		}
		return "", nil
	}
	return scopes.Resolve(ctx, scope)
}
