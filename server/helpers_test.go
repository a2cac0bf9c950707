package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/giantswarm/oauth2-server/internal/testutil"
	"github.com/giantswarm/oauth2-server/storage/memory"
)

const testState = "af0ifjsldkj"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestServer returns a server over a seeded memory store and a clock the
// test controls.
func newTestServer(t *testing.T, config *Config) (*Server, *memory.Store, *testutil.MockTime) {
	t.Helper()

	store := memory.NewWithInterval(time.Hour)
	t.Cleanup(store.Stop)
	testutil.Seed(t, store)

	srv, err := New(StoresFrom(store), config, discardLogger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	clock := testutil.NewMockTime(time.Now())
	srv.SetClock(clock.Now)
	return srv, store, clock
}

func confidential() *ClientCredentials {
	return &ClientCredentials{
		ID:     testutil.ConfidentialClientID,
		Secret: testutil.ConfidentialClientSecret,
		Basic:  true,
	}
}

// wantCode fails the test unless err is a protocol error with code.
func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil error", code)
	}
	var protoErr *Error
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected *Error with code %s, got %T: %v", code, err, err)
	}
	if protoErr.Code != code {
		t.Fatalf("error code = %q, want %q (%v)", protoErr.Code, code, err)
	}
}

// authorizeCode runs a code flow for the confidential client and returns
// the issued code.
func authorizeCode(t *testing.T, srv *Server, scope string) string {
	t.Helper()
	params := map[string]string{
		ParamResponseType: ResponseTypeCode,
		ParamClientID:     testutil.ConfidentialClientID,
		ParamState:        testState,
	}
	if scope != "" {
		params[ParamScope] = scope
	}
	resp, err := srv.Authorize(context.Background(), &AuthorizeRequest{Params: params, UserID: testutil.Username})
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	return resp.Code
}

// passwordTokens runs the password grant and returns the token response.
func passwordTokens(t *testing.T, srv *Server, scope string) *TokenResponse {
	t.Helper()
	params := map[string]string{
		ParamGrantType: GrantTypePassword,
		ParamUsername:  testutil.Username,
		ParamPassword:  testutil.Password,
	}
	if scope != "" {
		params[ParamScope] = scope
	}
	resp, err := srv.Token(context.Background(), confidential(), params)
	if err != nil {
		t.Fatalf("password grant error = %v", err)
	}
	return resp
}
