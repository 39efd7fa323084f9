// Package storage opens the configured backing store and exposes the
// repositories the services need.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/gamegate/internal/config"
	"github.com/BradenHooton/gamegate/internal/database"
	"github.com/BradenHooton/gamegate/internal/repositories"
	"github.com/BradenHooton/gamegate/internal/services"
)

// AccountStore is the account repository plus the periodic purge.
type AccountStore interface {
	services.AccountRepository
	PurgeExpiredUnverified(ctx context.Context, now time.Time) (int64, error)
}

// Store is an opened backing store.
type Store struct {
	Driver   string
	Accounts AccountStore
	Games    services.GameResultRepository

	health func(ctx context.Context) error
	close  func(ctx context.Context) error
}

// Open connects to the store named by cfg.Database.Driver. For Postgres it
// applies pending migrations when DB_AUTO_MIGRATE is set.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.Database.Driver {
	case config.StoreDriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.StoreDriverMongo:
		return openMongo(ctx, cfg, logger)
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return NewMemory(nil), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Database.Driver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Store{
		Driver:   config.StoreDriverPostgres,
		Accounts: repositories.NewAccountRepository(db),
		Games:    repositories.NewGameResultRepository(db),
		health:   db.HealthCheck,
		close: func(context.Context) error {
			db.Close()
			return nil
		},
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	db, err := database.NewMongoConnection(&cfg.Mongo, logger)
	if err != nil {
		return nil, err
	}

	accounts, err := repositories.NewAccountMongoRepository(ctx, db)
	if err != nil {
		_ = db.Close(ctx)
		return nil, err
	}
	games, err := repositories.NewGameResultMongoRepository(ctx, db)
	if err != nil {
		_ = db.Close(ctx)
		return nil, err
	}

	return &Store{
		Driver:   config.StoreDriverMongo,
		Accounts: accounts,
		Games:    games,
		health:   db.HealthCheck,
		close:    db.Close,
	}, nil
}

// NewMemory returns a process-local store. A nil clock uses time.Now.
func NewMemory(clock func() time.Time) *Store {
	return &Store{
		Driver:   config.StoreDriverMemory,
		Accounts: repositories.NewAccountMemoryRepository(clock),
		Games:    repositories.NewGameResultMemoryRepository(),
		health:   func(context.Context) error { return nil },
		close:    func(context.Context) error { return nil },
	}
}

// HealthCheck pings the underlying store.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.health(ctx)
}

// Close releases connections.
func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}
