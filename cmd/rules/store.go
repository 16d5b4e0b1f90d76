package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/rules/internal/config"
	"github.com/aretw0/rules/pkg/adapters/memory"
	"github.com/aretw0/rules/pkg/adapters/redis"
	"github.com/aretw0/rules/pkg/adapters/sqlite"
	"github.com/aretw0/rules/pkg/persistence/middleware"
	"github.com/aretw0/rules/pkg/ports"
)

// openStore builds the auto-save store named by the configuration, wrapped
// with the configured masking and encryption. The returned store is nil for
// config.StoreNone; the close function is never nil.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.VariableStore, func() error, error) {
	store, closeFn, err := openBackend(ctx, cfg, logger)
	if err != nil || store == nil {
		return store, closeFn, err
	}

	var mws []middleware.Middleware
	if len(cfg.PIIPatterns) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.PIIPatterns)
		if err != nil {
			_ = closeFn()
			return nil, noop, err
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKey != "" {
		key, err := middleware.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			_ = closeFn()
			return nil, noop, fmt.Errorf("RULES_ENCRYPTION_KEY: %w", err)
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			_ = closeFn()
			return nil, noop, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), closeFn, nil
}

func noop() error { return nil }

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.VariableStore, func() error, error) {
	switch cfg.Store {
	case config.StoreNone:
		return nil, noop, nil
	case config.StoreMemory:
		return memory.NewStore(), noop, nil
	case config.StoreRedis:
		store := redis.New(cfg.RedisAddr, "", 0, redis.WithPrefix(cfg.RedisPrefix))
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, noop, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		logger.Debug("store opened", "store", cfg.Store, "addr", cfg.RedisAddr)
		return store, store.Close, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		logger.Debug("store opened", "store", cfg.Store, "path", cfg.SQLitePath)
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
