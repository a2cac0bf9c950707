package server

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/oauth2-server/instrumentation"
	"github.com/giantswarm/oauth2-server/security"
	"github.com/giantswarm/oauth2-server/storage"
)

// ErrTokenInvalid is returned by ValidateAccessToken for unknown or expired
// access tokens.
var ErrTokenInvalid = errors.New("access token is invalid or expired")

// Authorize handles an authorization endpoint request (RFC 6749 section
// 4.1.1 and 4.2.1).
//
// Errors raised before the redirect URI is established are returned as
// *Error and must be rendered directly. Later errors are returned as
// *RedirectError and must be delivered through the redirect URI.
func (s *Server) Authorize(ctx context.Context, req *AuthorizeRequest) (resp *AuthorizeResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "server.Authorize")
	defer func() { s.finishSpan(ctx, span, instrumentation.EndpointAuthorize, err) }()

	params := s.grammar.Filter(req.Params)
	responseType := req.Params[ParamResponseType]
	span.SetAttributes(attribute.String(instrumentation.AttrResponseType, responseType))

	client, err := s.clients.Identify(ctx, ResolveClientCredentials(nil, params))
	if err != nil {
		s.auditor.LogAuthFailure(ctx, req.UserID, req.Params[ParamClientID], ErrorCode(err))
		return nil, err
	}
	instrumentation.AddOAuthFlowAttributes(span, client.ClientID, req.UserID, "")

	redirectURI, err := ResolveRedirectURI(params[ParamRedirectURI], client)
	if err != nil {
		return nil, err
	}

	state := params[ParamState]
	handler, known := s.responseTypes[params[ParamResponseType]]
	redirectErr := func(e *Error) error {
		return &RedirectError{
			Err:         e,
			RedirectURI: redirectURI,
			State:       state,
			Fragment:    known && handler.UsesFragment(),
		}
	}

	switch {
	case responseType == "":
		return nil, redirectErr(ErrInvalidRequest("response_type is required"))
	case !known:
		return nil, redirectErr(ErrUnsupportedResponseType("response_type is not supported"))
	}

	var scope string
	if requested, ok := params[ParamScope]; ok {
		if scope, err = s.scopes.Resolve(ctx, requested); err != nil {
			return nil, redirectErr(AsError(err))
		}
	} else if req.Params[ParamScope] != "" {
		return nil, redirectErr(ErrInvalidScope("scope is malformed"))
	}

	resp, err = handler.Handle(ctx, &AuthorizationContext{
		Client:      client,
		RedirectURI: redirectURI,
		Scope:       scope,
		State:       state,
		UserID:      req.UserID,
	})
	if err != nil {
		return nil, redirectErr(AsError(err))
	}

	if resp.Token != nil {
		s.auditor.LogTokenIssued(ctx, req.UserID, client.ClientID, scope, ResponseTypeToken)
	} else {
		s.auditor.LogCodeIssued(ctx, req.UserID, client.ClientID, scope)
	}
	s.metrics.RecordAuthorization(ctx, handler.ResponseType())
	s.logger.Info("Authorization granted",
		"client_id", client.ClientID,
		"response_type", handler.ResponseType(),
		"scope", scope)
	return resp, nil
}

// Token handles a token endpoint request (RFC 6749 section 5). basic holds
// HTTP basic-auth client credentials, if any; they take precedence over
// client_id and client_secret in params.
func (s *Server) Token(ctx context.Context, basic *ClientCredentials, params map[string]string) (resp *TokenResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "server.Token")
	defer func() { s.finishSpan(ctx, span, instrumentation.EndpointToken, err) }()

	filtered := s.grammar.Filter(params)
	grantType := params[ParamGrantType]
	span.SetAttributes(attribute.String(instrumentation.AttrGrantType, grantType))

	if grantType == "" {
		return nil, ErrInvalidRequest("grant_type is required")
	}
	validator, ok := s.grantTypes[filtered[ParamGrantType]]
	if !ok {
		return nil, ErrUnsupportedGrantType("grant_type is not supported")
	}

	creds := ResolveClientCredentials(basic, filtered)
	client, err := s.clients.Authenticate(ctx, creds)
	if err != nil {
		s.auditor.LogAuthFailure(ctx, "", creds.ID, ErrorCode(err))
		return nil, err
	}

	grant, err := validator.Validate(ctx, &TokenRequest{
		Client: client,
		Params: filtered,
		Raw:    params,
	})
	if err != nil {
		s.auditor.LogAuthFailure(ctx, "", client.ClientID, ErrorCode(err))
		return nil, err
	}
	instrumentation.AddOAuthFlowAttributes(span, grant.ClientID, grant.UserID, grant.Scope)

	resp, err = s.issuer.Issue(ctx, grant)
	if err != nil {
		return nil, err
	}

	if validator.GrantType() == GrantTypeRefreshToken {
		s.auditor.LogTokenRefreshed(ctx, grant.UserID, grant.ClientID, grant.IssueRefreshToken)
	} else {
		s.auditor.LogTokenIssued(ctx, grant.UserID, grant.ClientID, grant.Scope, validator.GrantType())
	}
	s.metrics.RecordTokenIssued(ctx, validator.GrantType())
	s.logger.Info("Token issued",
		"client_id", grant.ClientID,
		"grant_type", validator.GrantType(),
		"scope", grant.Scope,
		"refresh_token", resp.RefreshToken != "")
	return resp, nil
}

// ValidateAccessToken looks up an access token for a resource server. It
// returns ErrTokenInvalid for unknown or expired tokens and a protocol error
// when storage fails.
func (s *Server) ValidateAccessToken(ctx context.Context, token string) (*storage.AccessToken, error) {
	ctx, span := s.tracer.Start(ctx, "server.ValidateAccessToken")
	defer span.End()

	if !s.grammar.Valid(ParamAccessToken, token) {
		return nil, ErrTokenInvalid
	}

	access, err := s.tokens.GetAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrAccessTokenNotFound) {
			return nil, ErrTokenInvalid
		}
		instrumentation.RecordError(span, err)
		return nil, storageError(err, nil)
	}

	grace := secondsToDuration(s.config.ClockSkewGracePeriod)
	if security.IsExpiredWithGracePeriod(access.ExpiresAt, s.now(), grace) {
		return nil, ErrTokenInvalid
	}
	instrumentation.SetSpanSuccess(span)
	return access, nil
}

// finishSpan records the outcome of an endpoint call on its span and metrics.
func (s *Server) finishSpan(ctx context.Context, span trace.Span, endpoint string, err error) {
	if err != nil {
		code := ErrorCode(err)
		span.SetAttributes(attribute.String(instrumentation.AttrErrorCode, code))
		instrumentation.SetSpanError(span, code)
		s.metrics.RecordProtocolError(ctx, endpoint, code)
		if code == ErrorCodeServerError || code == ErrorCodeTemporarilyUnavailable {
			s.logger.Warn("Request failed", "endpoint", endpoint, "error", err)
		} else {
			s.logger.Debug("Request rejected", "endpoint", endpoint, "error", err)
		}
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	span.End()
}
