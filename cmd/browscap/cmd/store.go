package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/browscap/internal/core/config"
	"github.com/solatis/browscap/internal/core/db"
	"github.com/solatis/browscap/internal/store"
)

// openDatabase opens the configured database and checks its schema.
func openDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, *db.Queries, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("--db-url or store.db_url required")
	}
	database, err := db.Open(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.RequireMigrated(ctx, database); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("%w (run 'browscap migrate up' first)", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, nil
}

// openStore builds the configured backend and its decorators. The returned
// function releases every resource the store holds.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	var (
		s       store.Store
		closers []func()
	)
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Store.Backend {
	case config.BackendMemory:
		s = store.NewMemory()
	case config.BackendFile:
		f, err := store.NewFile(cfg.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		s = f
	case config.BackendSQL:
		database, queries, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { database.Close() })
		s = store.NewSQL(queries)
	case config.BackendRedis:
		client, err := store.ConnectRedis(ctx, store.RedisConfig{
			URL:            cfg.Store.RedisURL,
			RetryAttempts:  3,
			RetryInterval:  time.Second,
			ConnectTimeout: 30 * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { client.Close() })
		s = store.NewRedis(client,
			store.WithRedisPrefix(cfg.Store.RedisPrefix),
			store.WithRedisTTL(cfg.Store.RedisTTL),
		)
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Store.Compress {
		c, err := store.NewCompressed(s)
		if err != nil {
			release()
			return nil, nil, err
		}
		closers = append(closers, c.Close)
		s = c
	}
	if cfg.Store.CacheSize > 0 {
		c, err := store.NewCached(s, cfg.Store.CacheSize)
		if err != nil {
			release()
			return nil, nil, err
		}
		s = c
	}

	slog.Debug("store opened", "backend", cfg.Store.Backend, "compress", cfg.Store.Compress, "cache_size", cfg.Store.CacheSize)
	return s, release, nil
}
