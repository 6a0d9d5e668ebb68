package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
	"github.com/vladislavdragonenkov/restaurant/internal/storage/memory"
	"github.com/vladislavdragonenkov/restaurant/internal/storage/postgres"
)

// runtimeStorage — выбранное хранилище вместе с проверкой готовности и закрытием.
type runtimeStorage struct {
	repo  domain.OrderRepository
	ping  func(ctx context.Context) error
	close func() error
}

func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeStorage, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Warn("using in-memory storage, orders are lost on restart")
		return &runtimeStorage{
			repo:  memory.NewOrderRepository(),
			ping:  func(context.Context) error { return nil },
			close: func() error { return nil },
		}, nil

	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.DB.ConnString(), postgres.WithMaxConns(cfg.DB.MaxConnections))
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}

		if cfg.DB.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres schema is up to date")
		}

		logger.WithField("max_connections", cfg.DB.MaxConnections).Info("postgres storage initialized")
		return &runtimeStorage{
			repo:  postgres.NewOrderRepository(store),
			ping:  store.Ping,
			close: store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
