// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/internal/bootstrap"
	"github.com/listen-rs/listen-engine/internal/config"
	"github.com/listen-rs/listen-engine/internal/server"
	"github.com/listen-rs/listen-engine/pkg/common"
	"github.com/listen-rs/listen-engine/pkg/engine"
	"github.com/listen-rs/listen-engine/pkg/feed"
	"github.com/listen-rs/listen-engine/pkg/store"

	actionBuiltin "github.com/listen-rs/listen-engine/pkg/action/builtin"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	engine            *engine.Engine
	store             store.Store
	priceSource       feed.Source
	httpServer        *server.HTTPServer
	grpcServer        *server.GRPCServer
	redisClient       *redis.Client
	natsConn          *nats.Conn
	shutdownTelemetry func(context.Context) error

	// rehydrated is the number of pipelines restored from the store.
	rehydrated int

	stopFeed   context.CancelFunc
	stopEngine context.CancelFunc
	engineErr  chan error
}

// New creates and initializes a new application instance.
//
// ============================================================
// DEVELOPER: Application initialization order
// ============================================================
// Components are initialized in dependency order:
// 1. Connections (Redis, NATS) for the components that need them
// 2. Durable store
// 3. Action dispatcher (executors selected by configuration)
// 4. Engine, rehydrated from the store before anything can reach it
// 5. Price feed
// 6. Servers (HTTP API + metrics, gRPC health)
// 7. Telemetry (OpenTelemetry tracing)
// ============================================================
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}

	// ============================================================
	// Step 1: Initialize connections
	// ============================================================
	redisClient, err := bootstrap.InitRedis(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	app.redisClient = redisClient

	natsConn, err := bootstrap.InitNATS(cfg)
	if err != nil {
		app.closeConnections()
		return nil, fmt.Errorf("failed to init NATS: %w", err)
	}
	app.natsConn = natsConn

	// ============================================================
	// Step 2: Durable store
	// ============================================================
	pipelineStore, storeHealth, err := bootstrap.InitStore(cfg, app.redisClient)
	if err != nil {
		app.closeConnections()
		return nil, fmt.Errorf("failed to init store: %w", err)
	}
	app.store = pipelineStore

	// ============================================================
	// Step 3: Action dispatcher
	// ============================================================
	deps := &actionBuiltin.Dependencies{Redis: app.redisClient}
	if app.natsConn != nil {
		deps.NATS = app.natsConn
	}
	dispatcher, err := bootstrap.InitDispatcher(cfg, deps)
	if err != nil {
		app.closeConnections()
		return nil, fmt.Errorf("failed to init dispatcher: %w", err)
	}

	// ============================================================
	// Step 4: Engine
	// ============================================================
	engineMetrics := engine.NewMetrics()
	app.engine = engine.New(pipelineStore, dispatcher,
		engine.WithMailboxCapacity(cfg.MailboxCapacity),
		engine.WithStoreTimeout(cfg.StoreTimeout),
		engine.WithShutdownGrace(cfg.ShutdownGrace),
		engine.WithLogger(logrus.WithField("component", "engine")),
		engine.WithMetrics(engineMetrics),
	)

	app.rehydrated, err = app.engine.Rehydrate(ctx)
	if err != nil {
		app.closeConnections()
		return nil, fmt.Errorf("failed to rehydrate pipelines: %w", err)
	}

	// ============================================================
	// Step 5: Price feed
	// ============================================================
	app.priceSource, err = bootstrap.InitPriceSource(cfg, app.redisClient, app.natsConn)
	if err != nil {
		app.closeConnections()
		return nil, fmt.Errorf("failed to init price feed: %w", err)
	}

	// ============================================================
	// Step 6: Setup servers
	// ============================================================
	creation := server.NewCreationMetrics()
	registry, err := server.NewRegistry(append(engineMetrics.Collectors(), creation.Collectors()...)...)
	if err != nil {
		app.closeConnections()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	app.httpServer = server.NewHTTPServer(server.HTTPConfig{
		Port:         cfg.HTTPPort,
		ServiceName:  cfg.ServiceName,
		ReplyTimeout: cfg.ReplyTimeout,
		Gatherer:     registry,
		Creation:     creation,
		Readiness:    storeHealth,
	}, app.engine.Client())
	if err := app.httpServer.Setup(); err != nil {
		app.closeConnections()
		return nil, fmt.Errorf("failed to setup HTTP server: %w", err)
	}

	app.grpcServer = server.NewGRPCServer(cfg.GRPCPort)
	if err := app.grpcServer.Setup(); err != nil {
		app.closeConnections()
		return nil, fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	// ============================================================
	// Step 7: Setup telemetry
	// ============================================================
	if cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, common.TracerConfig{
			ServiceName: cfg.OtelServiceName,
			Environment: cfg.Environment,
			InstanceID:  int64(cfg.InstanceID),
			ZipkinURL:   cfg.ZipkinURL,
			SampleRatio: cfg.OtelSampleRatio,
		})
		if err != nil {
			app.closeConnections()
			return nil, fmt.Errorf("failed to setup telemetry: %w", err)
		}
		app.shutdownTelemetry = shutdownTelemetry
	}

	logrus.Info("application initialized successfully")

	return app, nil
}

// closeConnections releases the store and network connections.
func (a *App) closeConnections() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logrus.Errorf("store close error: %v", err)
		}
		a.store = nil
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logrus.Errorf("Redis close error: %v", err)
		}
		a.redisClient = nil
	}
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			logrus.Errorf("NATS drain error: %v", err)
		}
		a.natsConn = nil
	}
}
