package oauth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/oauth2-server/instrumentation"
	"github.com/giantswarm/oauth2-server/internal/testutil"
	"github.com/giantswarm/oauth2-server/server"
	"github.com/giantswarm/oauth2-server/storage"
	"github.com/giantswarm/oauth2-server/storage/memory"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupTestHandler(t *testing.T, config *Config) (*Handler, *memory.Store) {
	t.Helper()

	store := memory.NewWithInterval(time.Hour)
	t.Cleanup(store.Stop)
	testutil.Seed(t, store)

	if config == nil {
		config = &Config{}
	}
	if config.Logger == nil {
		config.Logger = discardLogger
	}
	if config.ResourceOwner == nil {
		config.ResourceOwner = func(*http.Request) string { return testutil.Username }
	}

	srv, err := NewServer(store, config)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(srv.Stop)

	return NewHandler(srv, discardLogger), store
}

func tokenRequest(form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v (body %q)", err, w.Body.String())
	}
	return resp
}

func decodeToken(t *testing.T, w *httptest.ResponseRecorder) TokenResponse {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", w.Code, w.Body.String())
	}
	var resp TokenResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	return resp
}

func TestNewHandler(t *testing.T) {
	handler, _ := setupTestHandler(t, nil)
	if handler == nil {
		t.Fatal("NewHandler() returned nil")
	}
	if handler.tracer == nil {
		t.Error("tracer should default to a no-op tracer")
	}
}

func TestServeToken_ClientCredentials(t *testing.T) {
	handler, _ := setupTestHandler(t, nil)

	r := tokenRequest(url.Values{"grant_type": {"client_credentials"}, "scope": {"read"}})
	r.SetBasicAuth(testutil.ConfidentialClientID, testutil.ConfidentialClientSecret)
	w := httptest.NewRecorder()
	handler.ServeToken(w, r)

	resp := decodeToken(t, w)
	if resp.AccessToken == "" {
		t.Error("access_token is empty")
	}
	if resp.TokenType != server.TokenTypeBearer {
		t.Errorf("token_type = %q, want bearer", resp.TokenType)
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("expires_in = %d, want 3600", resp.ExpiresIn)
	}
	if resp.RefreshToken != "" {
		t.Error("client_credentials must not issue a refresh token")
	}
	if resp.Scope != "read" {
		t.Errorf("scope = %q, want read", resp.Scope)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestServeToken_MethodNotAllowed(t *testing.T) {
	handler, _ := setupTestHandler(t, nil)

	w := httptest.NewRecorder()
	handler.ServeToken(w, httptest.NewRequest(http.MethodGet, "/token?grant_type=client_credentials", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
	if got := w.Header().Get("Allow"); got != http.MethodPost {
		t.Errorf("Allow = %q, want POST", got)
	}
}

func TestServeToken_Errors(t *testing.T) {
	tests := []struct {
		name          string
		form          url.Values
		basicID       string
		basicSecret   string
		wantStatus    int
		wantCode      string
		wantChallenge bool
	}{
		{
			name:          "wrong secret via basic",
			form:          url.Values{"grant_type": {"client_credentials"}},
			basicID:       testutil.ConfidentialClientID,
			basicSecret:   "wrong",
			wantStatus:    http.StatusUnauthorized,
			wantCode:      ErrorCodeInvalidClient,
			wantChallenge: true,
		},
		{
			name: "wrong secret via form",
			form: url.Values{
				"grant_type":    {"client_credentials"},
				"client_id":     {testutil.ConfidentialClientID},
				"client_secret": {"wrong"},
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   ErrorCodeInvalidClient,
		},
		{
			name:       "missing grant_type",
			form:       url.Values{"client_id": {testutil.PublicClientID}},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrorCodeInvalidRequest,
		},
		{
			name:       "unknown grant_type",
			form:       url.Values{"grant_type": {"foo"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrorCodeUnsupportedGrantType,
		},
		{
			name: "repeated parameter",
			form: url.Values{
				"grant_type": {"client_credentials", "password"},
				"client_id":  {testutil.PublicClientID},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrorCodeInvalidRequest,
		},
		{
			name: "unknown client",
			form: url.Values{
				"grant_type": {"client_credentials"},
				"client_id":  {"nobody"},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrorCodeUnauthorizedClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := setupTestHandler(t, nil)

			r := tokenRequest(tt.form)
			if tt.basicID != "" {
				r.SetBasicAuth(tt.basicID, tt.basicSecret)
			}
			w := httptest.NewRecorder()
			handler.ServeToken(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			resp := decodeError(t, w)
			if resp.Error != tt.wantCode {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantCode)
			}
			challenge := w.Header().Get("WWW-Authenticate")
			if tt.wantChallenge && !strings.HasPrefix(challenge, "Basic") {
				t.Errorf("WWW-Authenticate = %q, want Basic challenge", challenge)
			}
			if !tt.wantChallenge && challenge != "" {
				t.Errorf("unexpected WWW-Authenticate %q", challenge)
			}
			if got := w.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Cache-Control = %q, want no-store", got)
			}
		})
	}
}

func TestServeToken_BasicCredentialsAreFormDecoded(t *testing.T) {
	handler, store := setupTestHandler(t, nil)

	const id, secret = "svc:reports", "p@ss word/1"
	err := store.SaveClient(context.Background(), &storage.Client{
		ClientID:         id,
		ClientSecretHash: testutil.MustHash(t, secret),
	})
	if err != nil {
		t.Fatalf("SaveClient() error = %v", err)
	}

	r := tokenRequest(url.Values{"grant_type": {"client_credentials"}})
	r.SetBasicAuth(url.QueryEscape(id), url.QueryEscape(secret))
	w := httptest.NewRecorder()
	handler.ServeToken(w, r)

	decodeToken(t, w)
}

func TestServeToken_BodyTooLarge(t *testing.T) {
	handler, _ := setupTestHandler(t, &Config{MaxRequestBodySize: 32})

	r := tokenRequest(url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {strings.Repeat("read ", 50)},
	})
	w := httptest.NewRecorder()
	handler.ServeToken(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp := decodeError(t, w); resp.Error != ErrorCodeInvalidRequest {
		t.Errorf("error = %q, want invalid_request", resp.Error)
	}
}

func TestServeToken_RateLimited(t *testing.T) {
	handler, _ := setupTestHandler(t, &Config{RateLimit: RateLimitConfig{Rate: 0.001, Burst: 1}})

	send := func() *httptest.ResponseRecorder {
		r := tokenRequest(url.Values{"grant_type": {"client_credentials"}})
		r.SetBasicAuth(testutil.ConfidentialClientID, testutil.ConfidentialClientSecret)
		w := httptest.NewRecorder()
		handler.ServeToken(w, r)
		return w
	}

	decodeToken(t, send())

	w := send()
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != defaultRetryAfterSeconds {
		t.Errorf("Retry-After = %q, want %s", got, defaultRetryAfterSeconds)
	}
	if resp := decodeError(t, w); resp.Error != ErrorCodeTemporarilyUnavailable {
		t.Errorf("error = %q, want temporarily_unavailable", resp.Error)
	}
}

func TestServeAuthorization_CodeFlow(t *testing.T) {
	handler, _ := setupTestHandler(t, nil)

	query := url.Values{
		"response_type": {"code"},
		"client_id":     {testutil.ConfidentialClientID},
		"scope":         {"read write"},
		"state":         {"xyz"},
	}
	w := httptest.NewRecorder()
	handler.ServeAuthorization(w, httptest.NewRequest(http.MethodGet, "/authorize?"+query.Encode(), nil))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (body %q)", w.Code, w.Body.String())
	}
	location, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	if got := location.Scheme + "://" + location.Host + location.Path; got != testutil.ClientRedirectURI {
		t.Errorf("redirect target = %q, want %q", got, testutil.ClientRedirectURI)
	}
	if got := location.Query().Get("state"); got != "xyz" {
		t.Errorf("state = %q, want xyz", got)
	}
	code := location.Query().Get("code")
	if code == "" {
		t.Fatal("code missing from redirect")
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}

	r := tokenRequest(url.Values{"grant_type": {"authorization_code"}, "code": {code}})
	r.SetBasicAuth(testutil.ConfidentialClientID, testutil.ConfidentialClientSecret)
	tw := httptest.NewRecorder()
	handler.ServeToken(tw, r)

	resp := decodeToken(t, tw)
	if resp.RefreshToken == "" {
		t.Error("authorization_code grant should issue a refresh token")
	}
	if resp.Scope != "read write" {
		t.Errorf("scope = %q, want %q", resp.Scope, "read write")
	}
}

func TestServeAuthorization_Post(t *testing.T) {
	handler, _ := setupTestHandler(t, nil)

	form := url.Values{
		"response_type": {"token"},
		"client_id":     {testutil.PublicClientID},
		"state":         {"s1"},
	}
	r := httptest.NewRequest(http.MethodPost, "/authorize", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.ServeAuthorization(w, r)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (body %q)", w.Code, w.Body.String())
	}
	location, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	fragment, err := url.ParseQuery(location.Fragment)
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}
	if fragment.Get("access_token") == "" {
		t.Error("access_token missing from fragment")
	}
	if fragment.Get("state") != "s1" {
		t.Errorf("state = %q, want s1", fragment.Get("state"))
	}
	if location.RawQuery != "" {
		t.Errorf("implicit grant must not use the query, got %q", location.RawQuery)
	}
}

func TestServeAuthorization_Errors(t *testing.T) {
	tests := []struct {
		name         string
		query        url.Values
		wantStatus   int
		wantCode     string
		wantRedirect bool
	}{
		{
			name:       "missing client_id",
			query:      url.Values{"response_type": {"code"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrorCodeInvalidRequest,
		},
		{
			name:       "unknown client",
			query:      url.Values{"response_type": {"code"}, "client_id": {"nobody"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrorCodeUnauthorizedClient,
		},
		{
			name: "redirect_uri mismatch",
			query: url.Values{
				"response_type": {"code"},
				"client_id":     {testutil.ConfidentialClientID},
				"redirect_uri":  {"https://evil.example.com/callback"},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrorCodeInvalidRequest,
		},
		{
			name: "unsupported response type",
			query: url.Values{
				"response_type": {"id_token"},
				"client_id":     {testutil.ConfidentialClientID},
			},
			wantStatus:   http.StatusFound,
			wantCode:     ErrorCodeUnsupportedResponseType,
			wantRedirect: true,
		},
		{
			name: "unknown scope",
			query: url.Values{
				"response_type": {"code"},
				"client_id":     {testutil.ConfidentialClientID},
				"scope":         {"delete"},
			},
			wantStatus:   http.StatusFound,
			wantCode:     ErrorCodeInvalidScope,
			wantRedirect: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := setupTestHandler(t, nil)

			w := httptest.NewRecorder()
			handler.ServeAuthorization(w, httptest.NewRequest(http.MethodGet, "/authorize?"+tt.query.Encode(), nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %q)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantRedirect {
				location, err := url.Parse(w.Header().Get("Location"))
				if err != nil {
					t.Fatalf("parse Location: %v", err)
				}
				if got := location.Query().Get("error"); got != tt.wantCode {
					t.Errorf("error = %q, want %q", got, tt.wantCode)
				}
				return
			}
			if got := w.Header().Get("Location"); got != "" {
				t.Errorf("direct error must not redirect, got Location %q", got)
			}
			if resp := decodeError(t, w); resp.Error != tt.wantCode {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestServeAuthorization_MethodNotAllowed(t *testing.T) {
	handler, _ := setupTestHandler(t, nil)

	w := httptest.NewRecorder()
	handler.ServeAuthorization(w, httptest.NewRequest(http.MethodDelete, "/authorize", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestServeAuthorization_HSTS(t *testing.T) {
	handler, _ := setupTestHandler(t, &Config{Security: SecurityConfig{EnableHSTS: true}})

	query := url.Values{"response_type": {"code"}, "client_id": {testutil.ConfidentialClientID}}
	w := httptest.NewRecorder()
	handler.ServeAuthorization(w, httptest.NewRequest(http.MethodGet, "/authorize?"+query.Encode(), nil))

	if got := w.Header().Get("Strict-Transport-Security"); got == "" {
		t.Error("Strict-Transport-Security missing with HSTS enabled")
	}
}

func TestValidateToken(t *testing.T) {
	handler, _ := setupTestHandler(t, nil)

	r := tokenRequest(url.Values{"grant_type": {"client_credentials"}, "scope": {"read"}})
	r.SetBasicAuth(testutil.ConfidentialClientID, testutil.ConfidentialClientSecret)
	tw := httptest.NewRecorder()
	handler.ServeToken(tw, r)
	issued := decodeToken(t, tw)

	var seen *storage.AccessToken
	protected := handler.ValidateToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AccessTokenFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantErrorAttr bool
	}{
		{name: "valid token", authorization: "Bearer " + issued.AccessToken, wantStatus: http.StatusNoContent},
		{name: "scheme is case-insensitive", authorization: "bearer " + issued.AccessToken, wantStatus: http.StatusNoContent},
		{name: "missing header", authorization: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", authorization: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", authorization: "Bearer nope", wantStatus: http.StatusUnauthorized, wantErrorAttr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/resource", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusNoContent {
				if seen == nil || seen.ClientID != testutil.ConfidentialClientID {
					t.Errorf("access token in context = %+v", seen)
				}
				return
			}

			challenge := w.Header().Get("WWW-Authenticate")
			if !strings.HasPrefix(challenge, "Bearer") {
				t.Errorf("WWW-Authenticate = %q, want Bearer challenge", challenge)
			}
			if got := strings.Contains(challenge, `error="invalid_token"`); got != tt.wantErrorAttr {
				t.Errorf("challenge %q error attribute present = %v, want %v", challenge, got, tt.wantErrorAttr)
			}
			if resp := decodeError(t, w); resp.Error != ErrorCodeInvalidToken {
				t.Errorf("error = %q, want invalid_token", resp.Error)
			}
		})
	}
}

func TestSingleValued(t *testing.T) {
	params, err := singleValued(url.Values{
		"grant_type": {"password"},
		"x-custom":   {"a", "b"},
	})
	if err != nil {
		t.Fatalf("repeated unknown parameters must be tolerated: %v", err)
	}
	if params["grant_type"] != "password" || params["x-custom"] != "a" {
		t.Errorf("params = %v", params)
	}

	if _, err := singleValued(url.Values{"scope": {"a", "b"}}); server.ErrorCode(err) != ErrorCodeInvalidRequest {
		t.Errorf("repeated scope error = %v, want invalid_request", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "BEARER abc", want: "abc", ok: true},
		{header: "Bearer ", ok: false},
		{header: "Bearer", ok: false},
		{header: "Token abc", ok: false},
		{header: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", tt.header)
			got, ok := bearerToken(r)
			if got != tt.want || ok != tt.ok {
				t.Errorf("bearerToken() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestHandler_RecordsHTTPMetrics(t *testing.T) {
	handler, _ := setupTestHandler(t, nil)

	inst, err := instrumentation.New(t.Context(), instrumentation.Config{
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterPrometheus,
	})
	if err != nil {
		t.Fatalf("instrumentation.New() error = %v", err)
	}
	t.Cleanup(func() { _ = inst.Shutdown(context.Background()) })
	handler.server.SetInstrumentation(inst)
	handler = NewHandler(handler.server, discardLogger)

	r := tokenRequest(url.Values{"grant_type": {"client_credentials"}})
	r.SetBasicAuth(testutil.ConfidentialClientID, testutil.ConfidentialClientSecret)
	handler.ServeToken(httptest.NewRecorder(), r)

	w := httptest.NewRecorder()
	inst.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	if !strings.Contains(body, "http") || !strings.Contains(body, `"token"`) {
		t.Errorf("metrics output missing token endpoint request:\n%s", body)
	}
}
