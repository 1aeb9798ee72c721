// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import "time"

// Config holds all application configuration loaded from environment variables.
// This struct uses github.com/caarlos0/env for automatic environment variable parsing.
//
// ============================================================
// DEVELOPER: Add new configuration fields here.
// ============================================================
// Use struct tags to define:
// - `env:"VAR_NAME"` - the environment variable name
// - `env:",required"` - make it required
// - `envDefault:"value"` - set a default value
//
// After adding fields here, update loader.go Validate() if custom
// validation is needed.
// ============================================================
type Config struct {
	// ============================================================
	// Server configuration
	// ============================================================
	HTTPPort     int           `env:"HTTP_PORT" envDefault:"6966"`
	GRPCPort     int           `env:"GRPC_PORT" envDefault:"6565"`
	Environment  string        `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName  string        `env:"SERVICE_NAME" envDefault:"listen-engine"`
	ReplyTimeout time.Duration `env:"REPLY_TIMEOUT" envDefault:"5s"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"LOG_FORMAT" envDefault:"json"`

	// ============================================================
	// Engine configuration
	// ============================================================
	MailboxCapacity int           `env:"MAILBOX_CAPACITY" envDefault:"1000"`
	StoreTimeout    time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	ShutdownGrace   time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`
	SeedPath        string        `env:"SEED_PIPELINES_PATH"`

	// ============================================================
	// Store configuration
	// ============================================================
	StoreBackend string        `env:"STORE_BACKEND" envDefault:"redis"` // redis, sqlite, memory
	SQLitePath   string        `env:"SQLITE_PATH" envDefault:"data/listen-engine.db"`
	SnapshotTTL  time.Duration `env:"SNAPSHOT_TTL" envDefault:"0s"`

	// ============================================================
	// Redis configuration
	// ============================================================
	RedisHost       string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	RedisMaxRetries int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`

	// ============================================================
	// Price feed configuration
	// ============================================================
	PriceFeed       string `env:"PRICE_FEED" envDefault:"redis"` // redis, nats, none
	PriceChannel    string `env:"PRICE_CHANNEL" envDefault:"price_updates"`
	PriceAssetField string `env:"PRICE_ASSET_FIELD" envDefault:"name"` // name, pubkey
	PriceBuffer     int    `env:"PRICE_BUFFER" envDefault:"1024"`
	NATSURL         string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NATSSubject     string `env:"NATS_SUBJECT" envDefault:"prices.updates"`

	// ============================================================
	// Action executors
	// ============================================================
	NotificationExecutor string        `env:"NOTIFICATION_EXECUTOR" envDefault:"log_notification"`
	SwapExecutor         string        `env:"SWAP_EXECUTOR" envDefault:"log_swap"`
	NotificationAttempts int           `env:"NOTIFICATION_MAX_ATTEMPTS" envDefault:"3"`
	DispatchTimeout      time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"10s"`
	OrderQueue           string        `env:"ORDER_QUEUE" envDefault:"orders:pending"`

	// ============================================================
	// Telemetry configuration
	// ============================================================
	OtelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"true"`
	ZipkinURL       string  `env:"OTEL_EXPORTER_ZIPKIN_ENDPOINT"`
	OtelServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"listen-engine"`
	OtelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
	InstanceID      int     `env:"INSTANCE_ID" envDefault:"0"`
}

// RedisAddr returns host:port.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.StoreBackend == "redis" ||
		c.PriceFeed == "redis" ||
		c.NotificationExecutor == "redis_notification" ||
		c.SwapExecutor == "redis_order_queue"
}

// UsesNATS reports whether any component needs a NATS connection.
func (c *Config) UsesNATS() bool {
	return c.PriceFeed == "nats" || c.NotificationExecutor == "nats_notification"
}
