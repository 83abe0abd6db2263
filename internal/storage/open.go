package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/IshaanNene/trendscout/internal/config"
)

// Backends bundles the stores a refresh needs. Snapshots is nil when the
// snapshot index is disabled.
type Backends struct {
	Products  ProductStore
	Snapshots KV
	Locker    Locker

	redis *redis.Client
}

// Open creates every backend named by cfg. On error, anything already
// opened is closed and the error is returned.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}
	if err := b.open(ctx, cfg, logger); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

// open fills b one backend at a time. Fields are only assigned on success
// so Close never sees a typed-nil store.
func (b *Backends) open(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	redisClient := func() (*redis.Client, error) {
		if b.redis != nil {
			return b.redis, nil
		}
		c, err := NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		b.redis = c
		return c, nil
	}

	switch cfg.Storage.Type {
	case "memory":
		b.Products = NewMemoryStore(logger)
	case "mongodb":
		s, err := NewMongoStore(ctx, cfg.Storage.MongoURI, cfg.Storage.Database, cfg.Storage.Collection, logger)
		if err != nil {
			return err
		}
		b.Products = s
	case "postgres":
		s, err := NewPostgresStore(ctx, cfg.Storage.PostgresDSN, cfg.Storage.Table, logger)
		if err != nil {
			return err
		}
		b.Products = s
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	if cfg.Snapshot.Enabled {
		switch cfg.Snapshot.Backend {
		case "memory":
			b.Snapshots = NewMemoryKV()
		case "file":
			kv, err := NewFileKV(cfg.Snapshot.Path, logger)
			if err != nil {
				return err
			}
			b.Snapshots = kv
		case "sqlite":
			kv, err := NewSQLiteKV(cfg.Snapshot.Path)
			if err != nil {
				return err
			}
			b.Snapshots = kv
		case "redis":
			c, err := redisClient()
			if err != nil {
				return err
			}
			b.Snapshots = NewRedisKV(c, cfg.Snapshot.Prefix)
		default:
			return fmt.Errorf("unsupported snapshot backend: %s", cfg.Snapshot.Backend)
		}
	}

	switch cfg.Refresh.Lock {
	case "", "local":
		b.Locker = NewLocalLocker()
	case "redis":
		c, err := redisClient()
		if err != nil {
			return err
		}
		b.Locker = NewRedisLocker(c, cfg.Snapshot.Prefix, cfg.Redis.LockTTL)
	default:
		return fmt.Errorf("unsupported lock: %s", cfg.Refresh.Lock)
	}
	return nil
}

// Close releases every opened backend.
func (b *Backends) Close() error {
	var errs []error
	if b.Products != nil {
		errs = append(errs, b.Products.Close())
	}
	// The Redis client is shared and closed once below.
	if b.Snapshots != nil {
		if _, isRedis := b.Snapshots.(*RedisKV); !isRedis {
			errs = append(errs, b.Snapshots.Close())
		}
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	return errors.Join(errs...)
}
