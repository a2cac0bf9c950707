package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/giantswarm/oauth2-server/instrumentation"
	"github.com/giantswarm/oauth2-server/internal/config"
	"github.com/giantswarm/oauth2-server/security"
	"github.com/giantswarm/oauth2-server/storage"
	"github.com/giantswarm/oauth2-server/storage/bolt"
	"github.com/giantswarm/oauth2-server/storage/memory"
	"github.com/giantswarm/oauth2-server/storage/postgres"
	"github.com/giantswarm/oauth2-server/storage/valkey"
)

// backend is a storage.Store the binary owns and must release.
type backend interface {
	storage.Store
	SetInstrumentation(inst *instrumentation.Instrumentation)
}

// openStore opens the configured storage backend. The returned function
// releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backend, func(), error) {
	logger = logger.With("storage", cfg.Storage)

	switch cfg.Storage {
	case config.StorageMemory:
		store := memory.NewWithInterval(cfg.CleanupInterval)
		store.SetLogger(logger)
		logger.Warn("Using in-memory storage; state is lost on restart")
		return store, store.Stop, nil

	case config.StorageBolt:
		store, err := bolt.Open(cfg.BoltPath, cfg.CleanupInterval, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("Closing bolt storage failed", "error", err)
			}
		}, nil

	case config.StorageValkey:
		vcfg := valkey.Config{
			Address:   cfg.ValkeyAddr,
			Password:  cfg.ValkeyPassword,
			DB:        cfg.ValkeyDB,
			KeyPrefix: cfg.ValkeyKeyPrefix,
			Logger:    logger,
		}
		if cfg.ValkeyTLS {
			vcfg.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		store, err := valkey.New(vcfg)
		if err != nil {
			return nil, nil, err
		}
		if cfg.EncryptionKey != "" {
			key, err := security.KeyFromBase64(cfg.EncryptionKey)
			if err != nil {
				store.Close()
				return nil, nil, fmt.Errorf("OAUTH2_ENCRYPTION_KEY: %w", err)
			}
			sealer, err := security.NewRecordSealer(key)
			if err != nil {
				store.Close()
				return nil, nil, err
			}
			store.SetRecordSealer(sealer)
		}
		return store, store.Close, nil

	case config.StoragePostgres:
		store, err := postgres.Connect(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		store.StartCleanup(cfg.CleanupInterval)
		return store, store.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
}
