// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// DefaultRedisChannel is where the indexer publishes price updates.
const DefaultRedisChannel = "price_updates"

// RedisSource subscribes to a Redis pub/sub channel.
type RedisSource struct {
	client     *redis.Client
	channel    string
	assetField string
	log        *logrus.Entry
}

// NewRedisSource creates a price source on channel.
func NewRedisSource(client *redis.Client, channel, assetField string) *RedisSource {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisSource{
		client:     client,
		channel:    channel,
		assetField: assetField,
		log:        logrus.WithFields(logrus.Fields{"component": "feed", "source": "redis", "channel": channel}),
	}
}

// Run returns nil when ctx is cancelled and an error if the subscription
// cannot be established or is closed underneath it.
func (s *RedisSource) Run(ctx context.Context, out chan<- pipeline.PriceEvent) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.log.Info("subscribed to price updates")

	ch := sub.Channel()
	skipped := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription to %s closed", s.channel)
			}
			ev, err := ParsePriceUpdate([]byte(msg.Payload), s.assetField)
			if err != nil {
				skipped++
				s.log.Warnf("skipping price update (%d skipped so far): %v", skipped, err)
				continue
			}
			if !forward(ctx, out, ev) {
				return nil
			}
		}
	}
}
