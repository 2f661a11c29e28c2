package bootstrap

import (
	"context"
	"fmt"

	"github.com/Domenick1991/hotelbooking/config"
	"github.com/Domenick1991/hotelbooking/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// OpenStore connects the configured storage backend. The returned close
// function is never nil; check is nil for backends without a remote side.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, log logrus.FieldLogger) (repository.Store, func(), HealthCheck, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("database schema is up to date")
	}
	return repository.NewPGStore(pool), pool.Close, pool.Ping, nil
}
