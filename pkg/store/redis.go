// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

const (
	// KeyPrefix is the prefix for all pipeline keys
	KeyPrefix = "pipeline:"

	scanBatch = 500
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	MaxRetries int
}

// InitRedisClient connects to Redis, retrying the initial ping with exponential backoff.
func InitRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if _, err := client.Ping(ctx).Result(); err != nil {
			logrus.Warnf("Redis connection to %s failed (attempt %d): %v, retrying...", opts.Addr, attempt, err)
			return err
		}
		return nil
	}, b)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s after %d attempts: %w", opts.Addr, attempt, err)
	}

	logrus.Infof("connected to Redis at %s (attempt %d)", opts.Addr, attempt)
	return client, nil
}

// RedisStore implements Store with one JSON value per pipeline.
type RedisStore struct {
	client *redis.Client
	cfg    RedisStoreConfig
}

type RedisStoreConfig struct {
	// TTL of each snapshot; zero keeps snapshots forever.
	TTL time.Duration
}

// NewRedisStore creates a new Redis-backed pipeline store.
func NewRedisStore(client *redis.Client, cfg RedisStoreConfig) *RedisStore {
	return &RedisStore{
		client: client,
		cfg:    cfg,
	}
}

// makeKey creates a Redis key for a pipeline
func makeKey(id string) string {
	return KeyPrefix + id
}

// Put stores the pipeline snapshot.
func (r *RedisStore) Put(ctx context.Context, p *pipeline.Pipeline) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline %s: %w", p.ID, err)
	}

	if err := r.client.Set(ctx, makeKey(p.ID), data, r.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set pipeline %s: %w", p.ID, err)
	}

	logrus.Debugf("stored pipeline %s (status %s)", p.ID, p.Status)
	return nil
}

// Get retrieves a pipeline snapshot.
func (r *RedisStore) Get(ctx context.Context, id string) (*pipeline.Pipeline, error) {
	data, err := r.client.Get(ctx, makeKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline %s: %w", id, err)
	}

	var p pipeline.Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline %s: %w", id, err)
	}
	return &p, nil
}

// Delete removes a pipeline snapshot.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, makeKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete pipeline %s: %w", id, err)
	}

	logrus.Debugf("deleted pipeline %s", id)
	return nil
}

// List scans every pipeline key. Records that fail to decode are logged and skipped
// so one corrupt snapshot cannot prevent the engine from starting.
func (r *RedisStore) List(ctx context.Context) ([]*pipeline.Pipeline, error) {
	var (
		out    []*pipeline.Pipeline
		cursor uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, KeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipelines: %w", err)
		}

		if len(keys) > 0 {
			values, err := r.client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to load pipelines: %w", err)
			}
			for i, v := range values {
				raw, ok := v.(string)
				if !ok {
					// expired between SCAN and MGET
					continue
				}
				var p pipeline.Pipeline
				if err := json.Unmarshal([]byte(raw), &p); err != nil {
					logrus.Errorf("skipping corrupt pipeline record %s: %v", strings.TrimPrefix(keys[i], KeyPrefix), err)
					continue
				}
				out = append(out, &p)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

// Close is a no-op: the client is shared with the price feed and executors
// and is closed by its owner.
func (r *RedisStore) Close() error {
	return nil
}

// Ping checks that Redis answers.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
