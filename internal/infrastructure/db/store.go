// Package db selects and opens the configured credential store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/koreamarkers/webauth/internal/core/ports"
	"github.com/koreamarkers/webauth/internal/infrastructure/config"
	"github.com/koreamarkers/webauth/internal/infrastructure/db/mongo"
	"github.com/koreamarkers/webauth/internal/infrastructure/db/redis"
	"github.com/koreamarkers/webauth/internal/infrastructure/db/sqlstore"
	"github.com/koreamarkers/webauth/internal/infrastructure/http/handlers"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// Store is an opened user store plus everything needed to check and close it.
type Store struct {
	Users   ports.UserRepository
	Pingers []handlers.Pinger
	closers []func(context.Context) error
}

// Close releases every connection the store opened, last opened first.
func (s *Store) Close(ctx context.Context) error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open connects to the store named by cfg.Storage.Driver, applies schema
// setup, and wraps it with the Redis cache when REDIS_ADDR is set.
// Connections are retried with exponential backoff.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, error) {
	s := &Store{}
	var err error
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		err = s.openSQL(ctx, sqlstore.DriverPostgres, cfg.Storage.DatabaseURL, log)
	case config.DriverSQLite:
		err = s.openSQL(ctx, sqlstore.DriverSQLite, cfg.Storage.SQLitePath, log)
	case config.DriverMongo:
		err = s.openMongo(ctx, cfg.Mongo, log)
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		_ = s.Close(ctx)
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		if err := s.openCache(ctx, cfg.Redis, log); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) openSQL(ctx context.Context, driver, dsn string, log zerolog.Logger) error {
	var db *sql.DB
	err := withRetry(ctx, log, driver, func(ctx context.Context) error {
		var err error
		db, err = sqlstore.Open(ctx, driver, dsn)
		return err
	})
	if err != nil {
		return err
	}
	s.closers = append(s.closers, func(context.Context) error { return db.Close() })

	if err := sqlstore.Migrate(ctx, db, driver, log); err != nil {
		return err
	}
	repo, err := sqlstore.NewUserRepository(db, driver)
	if err != nil {
		return err
	}
	s.Users = repo
	s.Pingers = append(s.Pingers, sqlstore.Pinger{DB: db, Driver: driver})
	log.Info().Str("driver", driver).Msg("user store ready")
	return nil
}

func (s *Store) openMongo(ctx context.Context, cfg config.MongoConfig, log zerolog.Logger) error {
	var pinger mongo.Pinger
	var repo *mongo.MongoUserRepository
	err := withRetry(ctx, log, "mongo", func(ctx context.Context) error {
		client, database, err := mongo.Connect(ctx, mongo.Config{URI: cfg.URI, Database: cfg.Database})
		if err != nil {
			return err
		}
		pinger.Client = client
		repo = mongo.NewUserRepository(database)
		return nil
	})
	if err != nil {
		return err
	}
	s.closers = append(s.closers, pinger.Client.Disconnect)

	if err := repo.EnsureIndexes(ctx); err != nil {
		return err
	}
	s.Users = repo
	s.Pingers = append(s.Pingers, pinger)
	log.Info().Str("database", cfg.Database).Msg("user store ready (mongo)")
	return nil
}

func (s *Store) openCache(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) error {
	var pinger redis.Pinger
	err := withRetry(ctx, log, "redis", func(ctx context.Context) error {
		client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Addr, DB: cfg.DB})
		if err != nil {
			return err
		}
		pinger.Client = client
		return nil
	})
	if err != nil {
		return err
	}
	s.closers = append(s.closers, func(context.Context) error { return pinger.Client.Close() })

	s.Users = redis.NewUserCache(s.Users, pinger.Client, cfg.CacheTTL, log)
	s.Pingers = append(s.Pingers, pinger)
	log.Info().Str("addr", cfg.Addr).Dur("ttl", cfg.CacheTTL).Msg("user cache enabled")
	return nil
}

func withRetry(ctx context.Context, log zerolog.Logger, name string, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewExponential(connectBackoff))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Str("store", name).Int("attempt", attempt).Msg("connect failed")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", name, err)
	}
	return nil
}
