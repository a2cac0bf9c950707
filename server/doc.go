// Package server implements the protocol core of an RFC 6749 authorization
// server.
//
// The core validates authorization and token endpoint requests and produces
// protocol responses. It has no HTTP dependency: the root oauth package
// decodes requests into parameter maps, calls Authorize or Token, and renders
// the result.
//
// Request handling is built from small collaborators:
//   - Grammar filters raw parameters against the RFC 6749 Appendix A classes
//   - ClientAuthenticator resolves and authenticates clients
//   - ResolveRedirectURI reconciles requested and registered redirect URIs
//   - ScopeResolver validates scopes against the registered set
//   - TokenIssuer mints and persists access and refresh tokens
//
// Response types ("code", "token") and grant types ("authorization_code",
// "client_credentials", "password", "refresh_token") are looked up by name
// in a table of factories. RegisterResponseType and RegisterGrantType add
// new entries.
//
// Every failure is an *Error carrying one RFC 6749 error code. Failures that
// happen after the redirect URI is known are wrapped in a *RedirectError and
// must be delivered through that URI.
//
// Example usage:
//
//	store := memory.New()
//	defer store.Stop()
//
//	srv, err := server.New(server.StoresFrom(store), &server.Config{
//		AccessTokenTTL: 3600,
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	resp, err := srv.Token(ctx, nil, map[string]string{
//		"grant_type":    "client_credentials",
//		"client_id":     "backend",
//		"client_secret": "s3cret",
//	})
package server
