// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Load reads configuration from environment variables.
// It attempts to load from .env file first (for local development),
// then parses environment variables into the Config struct.
func Load() (*Config, error) {
	// In production (Docker/K8s), environment variables are injected directly
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	} else {
		logrus.Infof("loaded environment variables from .env file")
	}

	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}
	return cfg, nil
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %q (must be one of %v)", name, value, allowed)
}

// Validate performs custom validation on the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d (must be 1-65535)", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid GRPC_PORT: %d (must be 1-65535)", c.GRPCPort)
	}
	if c.HTTPPort == c.GRPCPort {
		return fmt.Errorf("HTTP_PORT and GRPC_PORT must differ (both %d)", c.HTTPPort)
	}

	if c.ReplyTimeout <= 0 {
		return fmt.Errorf("REPLY_TIMEOUT must be positive")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.MailboxCapacity < 1 {
		return fmt.Errorf("invalid MAILBOX_CAPACITY: %d (must be at least 1)", c.MailboxCapacity)
	}
	if c.PriceBuffer < 0 {
		return fmt.Errorf("invalid PRICE_BUFFER: %d", c.PriceBuffer)
	}
	if c.NotificationAttempts < 1 {
		return fmt.Errorf("invalid NOTIFICATION_MAX_ATTEMPTS: %d (must be at least 1)", c.NotificationAttempts)
	}
	if c.OtelSampleRatio < 0 || c.OtelSampleRatio > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLE_RATIO: %v (must be 0-1)", c.OtelSampleRatio)
	}

	checks := []error{
		oneOf("STORE_BACKEND", c.StoreBackend, "redis", "sqlite", "memory"),
		oneOf("PRICE_FEED", c.PriceFeed, "redis", "nats", "none"),
		oneOf("PRICE_ASSET_FIELD", c.PriceAssetField, "name", "pubkey"),
		oneOf("NOTIFICATION_EXECUTOR", c.NotificationExecutor, "log_notification", "redis_notification", "nats_notification"),
		oneOf("SWAP_EXECUTOR", c.SwapExecutor, "log_swap", "redis_order_queue"),
		oneOf("LOG_FORMAT", c.LogFormat, "json", "text"),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	if c.StoreBackend == "sqlite" && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required when STORE_BACKEND=sqlite")
	}
	if c.StoreBackend == "memory" {
		logrus.Warn("STORE_BACKEND=memory: pipelines will not survive a restart")
	}

	return nil
}
