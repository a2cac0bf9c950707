package server

import (
	"context"
	"net/url"
	"strconv"

	"github.com/giantswarm/oauth2-server/storage"
)

// AuthorizeRequest is an authorization endpoint request.
type AuthorizeRequest struct {
	// Params holds the query parameters as received.
	Params map[string]string

	// UserID is the resource owner established by the caller's session
	// handling, if any. It is bound to the issued code or token.
	UserID string
}

// AuthorizationContext is the validated state handed to a response type
// handler once client, redirect URI and scope are resolved.
type AuthorizationContext struct {
	Client      *storage.Client
	RedirectURI string
	Scope       string
	State       string
	UserID      string
}

// AuthorizeResponse is a successful authorization response, delivered to
// the client at RedirectURI.
type AuthorizeResponse struct {
	RedirectURI string
	Code        string
	State       string

	// Token is set by the implicit flow and delivered in the fragment.
	Token *TokenResponse
}

// RedirectURL builds the URL the user agent is sent to.
func (r *AuthorizeResponse) RedirectURL() (string, error) {
	values := url.Values{}
	if r.Token != nil {
		values.Set(ParamAccessToken, r.Token.AccessToken)
		values.Set(ParamTokenType, r.Token.TokenType)
		if r.Token.ExpiresIn > 0 {
			values.Set(ParamExpiresIn, strconv.FormatInt(r.Token.ExpiresIn, 10))
		}
		if r.Token.Scope != "" {
			values.Set(ParamScope, r.Token.Scope)
		}
	} else {
		values.Set(ParamCode, r.Code)
	}
	if r.State != "" {
		values.Set(ParamState, r.State)
	}
	return buildRedirect(r.RedirectURI, values, r.Token != nil)
}

// RedirectURL builds the error redirect URL (RFC 6749 section 4.1.2.1).
func (e *RedirectError) RedirectURL() (string, error) {
	values := url.Values{}
	values.Set(ParamError, e.Err.Code)
	if e.Err.Description != "" {
		values.Set(ParamErrorDescription, e.Err.Description)
	}
	if e.State != "" {
		values.Set(ParamState, e.State)
	}
	return buildRedirect(e.RedirectURI, values, e.Fragment)
}

// buildRedirect adds values to the query of base, or replaces its fragment.
func buildRedirect(base string, values url.Values, fragment bool) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", ErrInvalidRequest("redirect_uri is not a valid URI")
	}
	if fragment {
		u.Fragment = ""
		u.RawFragment = ""
		return u.String() + "#" + values.Encode(), nil
	}
	query := u.Query()
	for k, v := range values {
		query[k] = v
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// ResponseTypeHandler produces the authorization response for one
// response_type.
type ResponseTypeHandler interface {
	// ResponseType returns the response_type value this handler serves
	ResponseType() string

	// UsesFragment reports whether responses and errors travel in the
	// redirect fragment instead of the query
	UsesFragment() bool

	// Handle produces the response for a validated request
	Handle(ctx context.Context, authz *AuthorizationContext) (*AuthorizeResponse, error)
}

// ResponseTypeHandlerFactory builds a handler bound to the server's collaborators.
type ResponseTypeHandlerFactory func(s *Server) ResponseTypeHandler

var builtinResponseTypes = map[string]ResponseTypeHandlerFactory{
	ResponseTypeCode:  newCodeResponseType,
	ResponseTypeToken: newTokenResponseType,
}
