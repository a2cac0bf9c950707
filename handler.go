package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/giantswarm/oauth2-server/instrumentation"
	"github.com/giantswarm/oauth2-server/security"
	"github.com/giantswarm/oauth2-server/server"
	"github.com/giantswarm/oauth2-server/storage"
)

// Handler is a thin HTTP adapter for the OAuth Server.
// It decodes requests, delegates to the protocol core and renders results.
type Handler struct {
	server *Server
	logger *slog.Logger
	tracer trace.Tracer // OpenTelemetry tracer for HTTP layer
}

// NewHandler creates a new HTTP handler
func NewHandler(s *Server, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		server: s,
		logger: logger,
		tracer: tracenoop.NewTracerProvider().Tracer(""),
	}

	// Initialize tracer if instrumentation is enabled
	if s.Instrumentation != nil {
		h.tracer = s.Instrumentation.Tracer("http")
	}

	return h
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// begin opens the endpoint span, resolves the client IP into the request
// context and returns a finish function that records the HTTP metrics.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request, spanName, endpoint string) (*statusRecorder, *http.Request, string, func()) {
	start := time.Now()
	ctx, span := h.tracer.Start(r.Context(), spanName)

	clientIP := h.server.ipResolver.Resolve(r)
	ctx = security.WithClientIP(ctx, clientIP)
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	finish := func() {
		instrumentation.AddHTTPAttributes(span, r.Method, endpoint, rec.status)
		if rec.status >= http.StatusInternalServerError {
			instrumentation.SetSpanError(span, http.StatusText(rec.status))
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()
		h.recordHTTPMetrics(ctx, r.Method, endpoint, rec.status, start)
	}
	return rec, r.WithContext(ctx), clientIP, finish
}

// ServeAuthorization handles the authorization endpoint (RFC 6749 section
// 3.1). GET reads the query; POST reads the form body.
func (h *Handler) ServeAuthorization(w http.ResponseWriter, r *http.Request) {
	rec, r, clientIP, finish := h.begin(w, r, "oauth.http.authorization", instrumentation.EndpointAuthorize)
	defer finish()

	var values url.Values
	switch r.Method {
	case http.MethodGet:
		values = r.URL.Query()
	case http.MethodPost:
		r.Body = http.MaxBytesReader(rec, r.Body, h.server.Config.MaxRequestBodySize)
		if err := r.ParseForm(); err != nil {
			h.writeError(rec, server.ErrInvalidRequest("failed to parse request body"), false)
			return
		}
		values = r.PostForm
	default:
		rec.Header().Set("Allow", "GET, POST")
		http.Error(rec, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.rateLimited(rec, r, clientIP, instrumentation.EndpointAuthorize) {
		return
	}

	params, err := singleValued(values)
	if err != nil {
		h.writeError(rec, err, false)
		return
	}

	var userID string
	if h.server.Config.ResourceOwner != nil {
		userID = h.server.Config.ResourceOwner(r)
	}

	resp, err := h.server.core.Authorize(r.Context(), &server.AuthorizeRequest{
		Params: params,
		UserID: userID,
	})
	if err != nil {
		var redirectErr *server.RedirectError
		if errors.As(err, &redirectErr) {
			location, urlErr := redirectErr.RedirectURL()
			if urlErr != nil {
				h.writeError(rec, urlErr, false)
				return
			}
			h.redirect(rec, r, location)
			return
		}
		h.writeError(rec, err, false)
		return
	}

	location, err := resp.RedirectURL()
	if err != nil {
		h.writeError(rec, err, false)
		return
	}
	h.redirect(rec, r, location)
}

// ServeToken handles the token endpoint (RFC 6749 section 3.2)
func (h *Handler) ServeToken(w http.ResponseWriter, r *http.Request) {
	rec, r, clientIP, finish := h.begin(w, r, "oauth.http.token", instrumentation.EndpointToken)
	defer finish()

	if r.Method != http.MethodPost {
		rec.Header().Set("Allow", http.MethodPost)
		http.Error(rec, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.rateLimited(rec, r, clientIP, instrumentation.EndpointToken) {
		return
	}

	r.Body = http.MaxBytesReader(rec, r.Body, h.server.Config.MaxRequestBodySize)
	if err := r.ParseForm(); err != nil {
		h.writeError(rec, server.ErrInvalidRequest("failed to parse request body"), false)
		return
	}

	params, err := singleValued(r.PostForm)
	if err != nil {
		h.writeError(rec, err, false)
		return
	}

	basic, err := basicCredentials(r)
	if err != nil {
		h.writeError(rec, err, true)
		return
	}

	resp, err := h.server.core.Token(r.Context(), basic, params)
	if err != nil {
		h.writeError(rec, err, basic != nil)
		return
	}

	security.SetSecurityHeaders(rec, h.server.Config.Security.EnableHSTS)
	writeJSON(rec, http.StatusOK, resp)
}

// ValidateToken is middleware that validates bearer access tokens
// (RFC 6750 section 2.1) and stores the token record in the request context.
func (h *Handler) ValidateToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := h.server.ipResolver.Resolve(r)
		r = r.WithContext(security.WithClientIP(r.Context(), clientIP))

		if h.rateLimited(w, r, clientIP, "resource") {
			return
		}

		accessToken, ok := bearerToken(r)
		if !ok {
			h.writeUnauthorizedError(w, "", "Missing or malformed Authorization header")
			return
		}

		access, err := h.server.core.ValidateAccessToken(r.Context(), accessToken)
		if err != nil {
			if errors.Is(err, server.ErrTokenInvalid) {
				h.logger.Debug("Token validation failed", "ip", clientIP)
				h.writeUnauthorizedError(w, ErrorCodeInvalidToken, "The access token is invalid or expired")
				return
			}
			h.writeError(w, err, false)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithAccessToken(r.Context(), access)))
	})
}

// rateLimited checks the client IP against the rate limiter. Returns true
// and writes the response if the request must be rejected.
func (h *Handler) rateLimited(w http.ResponseWriter, r *http.Request, clientIP, endpoint string) bool {
	if h.server.RateLimiter == nil || h.server.RateLimiter.Allow(clientIP) {
		return false
	}

	h.logger.Warn("Rate limit exceeded", "ip", clientIP, "endpoint", endpoint)
	if h.server.Instrumentation != nil {
		h.server.Instrumentation.Metrics().RecordRateLimitExceeded(r.Context(), endpoint)
	}
	h.server.Auditor.LogRateLimitExceeded(r.Context(), clientIP, endpoint)
	h.writeError(w, server.ErrTemporarilyUnavailable("rate limit exceeded, retry later"), false)
	return true
}

// singleValued flattens values, rejecting protocol parameters sent more
// than once (RFC 6749 section 3.1).
func singleValued(values url.Values) (map[string]string, error) {
	grammar := server.DefaultGrammar()
	params := make(map[string]string, len(values))
	for name, v := range values {
		if len(v) > 1 && grammar.Known(name) {
			return nil, server.ErrInvalidRequest(fmt.Sprintf("parameter %s is repeated", name))
		}
		if len(v) > 0 {
			params[name] = v[0]
		}
	}
	return params, nil
}

// basicCredentials returns the HTTP basic client credentials, or nil when
// the request carries none. Both parts are form-urlencoded (RFC 6749
// section 2.3.1).
func basicCredentials(r *http.Request) (*server.ClientCredentials, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, nil
	}
	id, err := url.QueryUnescape(username)
	if err != nil {
		return nil, server.ErrInvalidClient("malformed basic authentication")
	}
	secret, err := url.QueryUnescape(password)
	if err != nil {
		return nil, server.ErrInvalidClient("malformed basic authentication")
	}
	return &server.ClientCredentials{ID: id, Secret: secret, Basic: true}, nil
}

// bearerToken extracts the token from an "Authorization: Bearer" header
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, location string) {
	security.SetSecurityHeaders(w, h.server.Config.Security.EnableHSTS)
	http.Redirect(w, r, location, http.StatusFound)
}

// writeError renders err as an RFC 6749 section 5.2 JSON error. basicAuth
// is true when the client authenticated with the Authorization header.
func (h *Handler) writeError(w http.ResponseWriter, err error, basicAuth bool) {
	e := server.AsError(err)
	security.SetSecurityHeaders(w, h.server.Config.Security.EnableHSTS)

	switch e.Code {
	case server.ErrorCodeInvalidClient:
		if basicAuth {
			w.Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
		}
	case server.ErrorCodeTemporarilyUnavailable:
		w.Header().Set("Retry-After", defaultRetryAfterSeconds)
	}

	writeJSON(w, e.Status, ErrorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
	})
}

// writeUnauthorizedError writes a 401 with an RFC 6750 section 3 challenge.
// An empty code means the request carried no token, so the challenge has no
// error attribute.
func (h *Handler) writeUnauthorizedError(w http.ResponseWriter, code, description string) {
	security.SetSecurityHeaders(w, h.server.Config.Security.EnableHSTS)

	challenge := `Bearer realm="oauth2"`
	if code != "" {
		challenge += fmt.Sprintf(`, error=%q, error_description=%q`, code, description)
	}
	w.Header().Set("WWW-Authenticate", challenge)

	if code == "" {
		code = ErrorCodeInvalidToken
	}
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) recordHTTPMetrics(ctx context.Context, method, endpoint string, status int, start time.Time) {
	if h.server.Instrumentation == nil {
		return
	}
	h.server.Instrumentation.Metrics().RecordHTTPRequest(ctx, method, endpoint, status,
		float64(time.Since(start).Microseconds())/1000)
}

type contextKey string

const accessTokenKey contextKey = "access_token"

// AccessTokenFromContext returns the access token record stored by the
// ValidateToken middleware
func AccessTokenFromContext(ctx context.Context) (*storage.AccessToken, bool) {
	access, ok := ctx.Value(accessTokenKey).(*storage.AccessToken)
	return access, ok
}

// ContextWithAccessToken stores an access token record in ctx
func ContextWithAccessToken(ctx context.Context, access *storage.AccessToken) context.Context {
	return context.WithValue(ctx, accessTokenKey, access)
}
