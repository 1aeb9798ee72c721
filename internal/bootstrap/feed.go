// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/internal/config"
	"github.com/listen-rs/listen-engine/pkg/feed"
)

// InitPriceSource creates the inbound price feed. It returns nil when
// PRICE_FEED=none; the engine then only serves control requests.
func InitPriceSource(cfg *config.Config, redisClient *redis.Client, natsConn *nats.Conn) (feed.Source, error) {
	switch cfg.PriceFeed {
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("redis price feed requires a redis connection")
		}
		logrus.Infof("price feed: redis channel %s (asset field %s)", cfg.PriceChannel, cfg.PriceAssetField)
		return feed.NewRedisSource(redisClient, cfg.PriceChannel, cfg.PriceAssetField), nil

	case "nats":
		if natsConn == nil {
			return nil, fmt.Errorf("nats price feed requires a nats connection")
		}
		logrus.Infof("price feed: nats subject %s (asset field %s)", cfg.NATSSubject, cfg.PriceAssetField)
		return feed.NewNATSSource(natsConn, cfg.NATSSubject, cfg.PriceAssetField), nil

	case "none":
		logrus.Warn("price feed disabled; pipelines will not be evaluated")
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown price feed %q", cfg.PriceFeed)
	}
}

// InitNATS connects to NATS when any component needs it.
func InitNATS(cfg *config.Config) (*nats.Conn, error) {
	if !cfg.UsesNATS() {
		return nil, nil
	}
	return feed.ConnectNATS(cfg.NATSURL, cfg.ServiceName)
}
