package oauth

import (
	"fmt"
	"log/slog"

	"github.com/giantswarm/oauth2-server/instrumentation"
	"github.com/giantswarm/oauth2-server/security"
	"github.com/giantswarm/oauth2-server/server"
	"github.com/giantswarm/oauth2-server/storage"
)

// Server composes the protocol core with the HTTP surface concerns: rate
// limiting, client IP resolution, auditing and instrumentation.
type Server struct {
	core *server.Server

	Config          *Config
	RateLimiter     *security.RateLimiter
	Auditor         *security.Auditor
	Instrumentation *instrumentation.Instrumentation

	ipResolver security.ClientIPResolver
	logger     *slog.Logger
}

// NewServer creates a server over a single storage backend
func NewServer(store storage.Store, config *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return NewServerWithStores(server.StoresFrom(store), config)
}

// NewServerWithStores creates a server with a separate collaborator per
// repository
func NewServerWithStores(stores server.Stores, config *Config) (*Server, error) {
	if config == nil {
		config = &Config{}
	}
	applyDefaults(config)

	core, err := server.New(stores, &config.Server, config.Logger)
	if err != nil {
		return nil, err
	}
	logSecurityWarnings(config)

	s := &Server{
		core:   core,
		Config: config,
		ipResolver: security.ClientIPResolver{
			TrustProxy:        config.Security.TrustProxy,
			TrustedProxyCount: config.Security.TrustedProxyCount,
		},
		logger: config.Logger,
	}

	s.Auditor = security.NewAuditor(config.Logger, config.Security.EnableAuditLogging)
	core.SetAuditor(s.Auditor)

	if config.RateLimit.Rate > 0 {
		s.RateLimiter = security.NewRateLimiter(security.RateLimiterConfig{
			RequestsPerSecond: config.RateLimit.Rate,
			Burst:             config.RateLimit.Burst,
			MaxEntries:        config.RateLimit.MaxEntries,
			CleanupInterval:   config.RateLimit.CleanupInterval,
		}, config.Logger)
	}

	return s, nil
}

// Core returns the protocol core
func (s *Server) Core() *server.Server {
	return s.core
}

// SetInstrumentation enables tracing and metrics on the core and the HTTP
// layer. Handlers created afterwards pick it up.
func (s *Server) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.Instrumentation = inst
	s.core.SetInstrumentation(inst)
}

// Stop releases background resources
func (s *Server) Stop() {
	if s.RateLimiter != nil {
		s.RateLimiter.Stop()
	}
}
