package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"supportdesk/internal/infrastructure/database"
	"supportdesk/internal/infrastructure/migration"
	"supportdesk/internal/shared/config"
	"supportdesk/internal/shared/logger"
)

// Open builds the backend selected by cfg.Driver. The returned function closes the store
// and the connection it owns. autoMigrate applies pending schema migrations for the sql driver.
func Open(ctx context.Context, cfg *config.StoreConfig, autoMigrate bool, log logger.Interface) (Store, func() error, error) {
	log = log.With("component", "store", "driver", cfg.Driver)

	switch cfg.Driver {
	case "memory", "":
		s := NewMemoryStore(log)
		return s, s.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, unavailable("connect redis", err)
		}
		s := NewRedisStore(client, cfg.Redis.KeyPrefix, log)
		return s, func() error {
			_ = s.Close()
			return client.Close()
		}, nil

	case "sql":
		db, err := database.Open(&cfg.Database, log)
		if err != nil {
			return nil, nil, unavailable("connect database", err)
		}
		if autoMigrate {
			sqlDB, err := db.DB()
			if err != nil {
				return nil, nil, err
			}
			m, err := migration.NewMigrator(sqlDB, cfg.Database.Dialect, log)
			if err != nil {
				return nil, nil, err
			}
			if err := m.Up(ctx); err != nil {
				return nil, nil, err
			}
		}
		s := NewSQLStore(db, log)
		return s, func() error {
			_ = s.Close()
			return database.Close(db)
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
