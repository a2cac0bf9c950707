package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/giantswarm/oauth2-server/storage"
)

// ClientCredentials is the client identification presented with a request.
// The HTTP boundary fills it from basic auth when present, otherwise from
// the form or query parameters.
type ClientCredentials struct {
	ID     string
	Secret string

	// Basic is true when ID and Secret came from HTTP basic authentication.
	Basic bool
}

// ResolveClientCredentials picks the identity that wins: an authenticated
// basic-auth identity overrides client_id/client_secret request values.
func ResolveClientCredentials(basic *ClientCredentials, params map[string]string) ClientCredentials {
	if basic != nil && basic.ID != "" {
		return ClientCredentials{ID: basic.ID, Secret: basic.Secret, Basic: true}
	}
	return ClientCredentials{
		ID:     params[ParamClientID],
		Secret: params[ParamClientSecret],
	}
}

// ClientAuthenticator resolves client identifiers against the client store.
type ClientAuthenticator struct {
	clients storage.ClientStore
	logger  *slog.Logger
}

// NewClientAuthenticator creates an authenticator backed by the given store.
func NewClientAuthenticator(clients storage.ClientStore, logger *slog.Logger) *ClientAuthenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientAuthenticator{clients: clients, logger: logger}
}

// Identify resolves the client without checking a secret. Used by the
// authorization endpoint.
func (a *ClientAuthenticator) Identify(ctx context.Context, creds ClientCredentials) (*storage.Client, error) {
	if creds.ID == "" {
		return nil, ErrInvalidRequest("client_id is required")
	}

	client, err := a.clients.GetClient(ctx, creds.ID)
	if err != nil {
		a.logger.Debug("Client lookup failed", "client_id", creds.ID, "error", err)
		return nil, storageError(err, func() *Error {
			return ErrUnauthorizedClient("unknown client")
		})
	}
	return client, nil
}

// Authenticate resolves the client and, for confidential clients, verifies
// the secret. Used by the token endpoint.
func (a *ClientAuthenticator) Authenticate(ctx context.Context, creds ClientCredentials) (*storage.Client, error) {
	client, err := a.Identify(ctx, creds)
	if err != nil {
		return nil, err
	}

	if !client.IsConfidential() {
		if creds.Secret != "" {
			return nil, ErrInvalidClient("public client must not present a secret")
		}
		return client, nil
	}

	if creds.Secret == "" {
		return nil, ErrInvalidClient("client authentication required")
	}
	if err := a.clients.ValidateClientSecret(ctx, client.ClientID, creds.Secret); err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			a.logger.Debug("Client secret rejected", "client_id", client.ClientID)
			return nil, ErrInvalidClient("client authentication failed")
		}
		return nil, storageError(err, nil)
	}
	return client, nil
}
