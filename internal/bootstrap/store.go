// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/internal/config"
	"github.com/listen-rs/listen-engine/pkg/store"
)

// InitStore opens the configured durable store. redisClient is required
// for the redis backend and ignored otherwise.
func InitStore(cfg *config.Config, redisClient *redis.Client) (store.Store, *store.HealthChecker, error) {
	switch cfg.StoreBackend {
	case "redis":
		if redisClient == nil {
			return nil, nil, fmt.Errorf("redis store requires a redis connection")
		}
		s := store.NewRedisStore(redisClient, store.RedisStoreConfig{TTL: cfg.SnapshotTTL})
		logrus.Infof("using redis store at %s", cfg.RedisAddr())
		return s, store.NewHealthChecker("redis", s), nil

	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		logrus.Infof("using sqlite store at %s", cfg.SQLitePath)
		return s, store.NewHealthChecker("sqlite", s), nil

	case "memory":
		s := store.NewMemoryStore()
		logrus.Info("using in-memory store")
		return s, store.NewHealthChecker("memory", s), nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// InitRedis connects to Redis when any component needs it.
func InitRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}
	return store.InitRedisClient(ctx, store.RedisOptions{
		Addr:       cfg.RedisAddr(),
		Password:   cfg.RedisPassword,
		DB:         cfg.RedisDB,
		MaxRetries: cfg.RedisMaxRetries,
	})
}
