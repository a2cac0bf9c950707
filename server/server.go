package server

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/giantswarm/oauth2-server/instrumentation"
	"github.com/giantswarm/oauth2-server/security"
	"github.com/giantswarm/oauth2-server/storage"
)

// Server is the protocol core of the authorization server. It validates
// authorization and token requests and produces RFC 6749 responses. It has
// no HTTP dependency; the root oauth package adapts it to net/http.
type Server struct {
	clients *ClientAuthenticator
	scopes  *ScopeResolver
	codes   storage.CodeStore
	tokens  storage.TokenStore
	users   storage.UserStore
	issuer  *TokenIssuer
	grammar *Grammar

	grantTypes    map[string]GrantValidator
	responseTypes map[string]ResponseTypeHandler

	auditor  *security.Auditor
	tracer   trace.Tracer
	metrics  *instrumentation.Metrics
	now      func() time.Time
	generate func() string
	logger   *slog.Logger
	config   *Config
}

// Stores groups the repository collaborators of the server.
type Stores struct {
	Clients storage.ClientStore
	Scopes  storage.ScopeStore
	Codes   storage.CodeStore
	Tokens  storage.TokenStore

	// Users is required only when the password grant is enabled.
	Users storage.UserStore
}

// StoresFrom uses a single backend for every collaborator.
func StoresFrom(store storage.Store) Stores {
	return Stores{
		Clients: store,
		Scopes:  store,
		Codes:   store,
		Tokens:  store,
		Users:   store,
	}
}

// New creates a server core
func New(stores Stores, config *Config, logger *slog.Logger) (*Server, error) {
	if stores.Clients == nil {
		return nil, fmt.Errorf("client store is required")
	}
	if stores.Scopes == nil {
		return nil, fmt.Errorf("scope store is required")
	}
	if stores.Codes == nil {
		return nil, fmt.Errorf("code store is required")
	}
	if stores.Tokens == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if config == nil {
		config = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	applyDefaults(config)
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	if stores.Users == nil && slices.Contains(config.GrantTypes, GrantTypePassword) {
		return nil, fmt.Errorf("user store is required for the password grant")
	}
	logSecurityWarnings(config, logger)

	s := &Server{
		clients:       NewClientAuthenticator(stores.Clients, logger),
		scopes:        NewScopeResolver(stores.Scopes, logger),
		codes:         stores.Codes,
		tokens:        stores.Tokens,
		users:         stores.Users,
		issuer:        NewTokenIssuer(stores.Tokens, config, logger),
		grammar:       DefaultGrammar(),
		grantTypes:    make(map[string]GrantValidator),
		responseTypes: make(map[string]ResponseTypeHandler),
		auditor:       security.NewAuditor(logger, false),
		tracer:        tracenoop.NewTracerProvider().Tracer(""),
		now:           time.Now,
		generate:      generateToken,
		logger:        logger,
		config:        config,
	}

	for _, name := range config.GrantTypes {
		factory, ok := builtinGrantTypes[name]
		if !ok {
			return nil, fmt.Errorf("unsupported grant type %q", name)
		}
		s.grantTypes[name] = factory(s)
	}
	for _, name := range config.ResponseTypes {
		factory, ok := builtinResponseTypes[name]
		if !ok {
			return nil, fmt.Errorf("unsupported response type %q", name)
		}
		s.responseTypes[name] = factory(s)
	}

	return s, nil
}

// RegisterGrantType adds or replaces the validator for a grant_type value.
// It must be called before the server handles requests.
func (s *Server) RegisterGrantType(name string, factory GrantValidatorFactory) {
	s.grantTypes[name] = factory(s)
}

// RegisterResponseType adds or replaces the handler for a response_type
// value. It must be called before the server handles requests.
func (s *Server) RegisterResponseType(name string, factory ResponseTypeHandlerFactory) {
	s.responseTypes[name] = factory(s)
}

// SetAuditor sets the security auditor
func (s *Server) SetAuditor(aud *security.Auditor) {
	if aud != nil {
		s.auditor = aud
	}
}

// SetInstrumentation enables tracing and metrics
func (s *Server) SetInstrumentation(inst *instrumentation.Instrumentation) {
	if inst == nil {
		return
	}
	s.tracer = inst.Tracer("server")
	s.metrics = inst.Metrics()
}

// SetClock replaces the time source used for issuance and expiry checks.
// It must be called before the server handles requests.
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
	s.issuer.now = now
	s.rebuild()
}

// rebuild re-creates the registered handlers after a collaborator changed.
func (s *Server) rebuild() {
	for name := range s.grantTypes {
		if factory, ok := builtinGrantTypes[name]; ok {
			s.grantTypes[name] = factory(s)
		}
	}
	for name := range s.responseTypes {
		if factory, ok := builtinResponseTypes[name]; ok {
			s.responseTypes[name] = factory(s)
		}
	}
}

// Config returns the effective configuration with defaults applied
func (s *Server) Config() *Config {
	return s.config
}

// GrantTypes returns the enabled grant types
func (s *Server) GrantTypes() []string {
	names := make([]string, 0, len(s.grantTypes))
	for name := range s.grantTypes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ResponseTypes returns the enabled response types
func (s *Server) ResponseTypes() []string {
	names := make([]string, 0, len(s.responseTypes))
	for name := range s.responseTypes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
