package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	oauth "github.com/giantswarm/oauth2-server"
	"github.com/giantswarm/oauth2-server/instrumentation"
	"github.com/giantswarm/oauth2-server/internal/config"
	"github.com/giantswarm/oauth2-server/internal/logging"
	"github.com/giantswarm/oauth2-server/internal/seed"
	"github.com/giantswarm/oauth2-server/security"
	"github.com/giantswarm/oauth2-server/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the authorization server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return serve(cmd.Context(), cfg, logging.NewLogger(cfg.Environment))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("oauth2-server starting",
		slog.String("version", Version),
		slog.String("storage", cfg.Storage),
		slog.String("listen", cfg.ListenAddr),
	)

	inst, err := instrumentation.New(ctx, instrumentationConfig(cfg))
	if err != nil {
		return fmt.Errorf("initializing instrumentation: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := inst.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Instrumentation shutdown failed", "error", err)
		}
	}()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer closeStore()
	store.SetInstrumentation(inst)

	if cfg.SeedFile != "" {
		if err := seed.LoadFile(ctx, cfg.SeedFile, store); err != nil {
			return fmt.Errorf("seeding storage: %w", err)
		}
		logger.Info("Seeded storage", "file", cfg.SeedFile)
	}

	srv, err := oauth.NewServer(store, oauthConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer srv.Stop()
	srv.SetInstrumentation(inst)

	handler := oauth.NewHandler(srv, logger)

	g, gctx := errgroup.WithContext(ctx)
	runHTTP(gctx, g, logger, &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(handler, inst),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}, cfg.ShutdownTimeout)

	if metrics := inst.MetricsHandler(); metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics)
		runHTTP(gctx, g, logger, &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}, cfg.ShutdownTimeout)
	}

	return g.Wait()
}

// runHTTP serves srv in g until ctx is done, then shuts it down gracefully.
func runHTTP(ctx context.Context, g *errgroup.Group, logger *slog.Logger, srv *http.Server, timeout time.Duration) {
	g.Go(func() error {
		logger.Info("Listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down", "addr", srv.Addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func instrumentationConfig(cfg *config.Config) instrumentation.Config {
	ic := instrumentation.Config{
		ServiceName:    instrumentation.DefaultServiceName,
		ServiceVersion: Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		OTLPInsecure:   cfg.OTLPInsecure,
	}
	if cfg.MetricsAddr != "" {
		ic.Enabled = true
		ic.MetricsExporter = instrumentation.ExporterPrometheus
	}
	if cfg.OTLPEndpoint != "" {
		ic.Enabled = true
		ic.TracesExporter = instrumentation.ExporterOTLP
	}
	return ic
}

func oauthConfig(cfg *config.Config, logger *slog.Logger) *oauth.Config {
	oc := &oauth.Config{
		Server: server.Config{
			AuthorizationCodeTTL:        cfg.AuthorizationCodeTTL,
			AccessTokenTTL:              cfg.AccessTokenTTL,
			RefreshTokenTTL:             cfg.RefreshTokenTTL,
			ClockSkewGracePeriod:        cfg.ClockSkewGracePeriod,
			DisableRefreshTokenRotation: !cfg.RefreshRotation,
			TokenType:                   cfg.TokenType,
			GrantTypes:                  cfg.GrantTypes,
			ResponseTypes:               cfg.ResponseTypes,
		},
		RateLimit: oauth.RateLimitConfig{
			Rate:            cfg.RateLimit,
			Burst:           cfg.RateLimitBurst,
			CleanupInterval: cfg.CleanupInterval,
		},
		Security: oauth.SecurityConfig{
			TrustProxy:         cfg.TrustProxy,
			TrustedProxyCount:  cfg.TrustedProxyCount,
			EnableHSTS:         cfg.EnableHSTS,
			EnableAuditLogging: cfg.EnableAuditLogging,
		},
		Logger: logger,
	}
	if header := cfg.ResourceOwnerHeader; header != "" {
		oc.ResourceOwner = func(r *http.Request) string {
			return r.Header.Get(header)
		}
	}
	return oc
}

// newRouter mounts the OAuth endpoints and a bearer-protected token
// introspection endpoint for resource servers.
func newRouter(h *oauth.Handler, inst *instrumentation.Instrumentation) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(security.RequestIDMiddleware)

	r.HandleFunc("/authorize", h.ServeAuthorization)
	r.HandleFunc("/token", h.ServeToken)
	r.With(h.ValidateToken).Get("/tokeninfo", serveTokenInfo)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return otelhttp.NewHandler(r, "oauth2-server",
		otelhttp.WithTracerProvider(inst.TracerProvider()))
}

type tokenInfo struct {
	ClientID  string `json:"client_id"`
	UserID    string `json:"user_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

func serveTokenInfo(w http.ResponseWriter, r *http.Request) {
	access, ok := oauth.AccessTokenFromContext(r.Context())
	if !ok {
		http.Error(w, "token missing from context", http.StatusInternalServerError)
		return
	}

	security.SetSecurityHeaders(w, false)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenInfo{
		ClientID:  access.ClientID,
		UserID:    access.UserID,
		Scope:     access.Scope,
		TokenType: access.TokenType,
		ExpiresIn: security.SecondsUntil(access.ExpiresAt, time.Now()),
	})
}
