package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/foodstand/guestkit/internal/db"
)

// Driver names accepted by Open
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverBadger   = "badger"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config selects and configures a storage driver
type Config struct {
	Driver      string
	Path        string
	Namespace   string
	RedisURL    string
	DatabaseURL string
	Logger      zerolog.Logger
}

// Open builds the configured driver. Postgres is migrated before use.
func Open(ctx context.Context, cfg Config) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverMemory:
		return NewMemory(), nil
	case "", DriverFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file storage requires a path")
		}
		return NewFile(cfg.Path), nil
	case DriverBadger:
		return OpenBadger(BadgerConfig{
			Path:      cfg.Path,
			Namespace: cfg.Namespace,
			Logger:    cfg.Logger,
		})
	case DriverRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for redis storage")
		}
		return OpenRedis(ctx, cfg.RedisURL, cfg.Namespace)
	case DriverPostgres:
		database, err := db.Open(ctx, cfg.DatabaseURL, cfg.Logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, database); err != nil {
			_ = database.Close()
			return nil, err
		}
		return NewPostgres(database, cfg.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
