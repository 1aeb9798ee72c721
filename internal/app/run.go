// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/internal/bootstrap"
	"github.com/listen-rs/listen-engine/pkg/feed"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		a.Shutdown(context.WithoutCancel(ctx))
		return err
	}

	// Wait for shutdown signal or an engine exit
	select {
	case <-ctx.Done():
		logrus.Info("shutdown signal received")
	case err := <-a.engineErr:
		logrus.Errorf("engine stopped unexpectedly: %v", err)
	}

	return a.Shutdown(context.WithoutCancel(ctx))
}

// Start launches the engine, seeds pipelines, connects the price feed and
// starts the servers. It returns once everything is serving.
func (a *App) Start(ctx context.Context) error {
	prices := make(chan pipeline.PriceEvent, a.cfg.PriceBuffer)

	engineCtx, stopEngine := context.WithCancel(context.WithoutCancel(ctx))
	a.stopEngine = stopEngine
	a.engineErr = make(chan error, 1)
	go func() {
		err := a.engine.Run(engineCtx, prices)
		if err == nil {
			err = errors.New("engine exited")
		}
		a.engineErr <- err
	}()

	// ============================================================
	// Seed pipelines into an empty store only
	// ============================================================
	if a.cfg.SeedPath != "" {
		if a.rehydrated > 0 {
			logrus.Infof("skipping seed file %s: %d pipelines restored from store", a.cfg.SeedPath, a.rehydrated)
		} else {
			seedCtx, cancel := context.WithTimeout(ctx, a.cfg.ReplyTimeout*10)
			_, err := bootstrap.SeedPipelines(seedCtx, a.engine.Client(), a.cfg.SeedPath, time.Now().UTC())
			cancel()
			if err != nil {
				return err
			}
		}
	}

	if a.priceSource != nil {
		feedCtx, stopFeed := context.WithCancel(ctx)
		a.stopFeed = stopFeed
		go runFeed(feedCtx, a.priceSource, prices)
	}

	// Start servers
	if err := a.grpcServer.Start(ctx); err != nil {
		return err
	}
	if err := a.httpServer.Start(ctx); err != nil {
		return err
	}
	a.grpcServer.SetServing(true)

	logrus.Info("application started successfully")
	return nil
}

// runFeed keeps the price source subscribed, reconnecting with backoff
// until ctx is cancelled.
func runFeed(ctx context.Context, src feed.Source, out chan<- pipeline.PriceEvent) {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	err := backoff.RetryNotify(
		func() error {
			if err := src.Run(ctx, out); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			return errors.New("price feed returned")
		},
		backoff.WithContext(b, ctx),
		func(err error, wait time.Duration) {
			logrus.Warnf("price feed interrupted: %v, resubscribing in %s", err, wait)
		},
	)
	if err != nil && ctx.Err() == nil {
		logrus.Errorf("price feed stopped: %v", err)
	}
}

// Shutdown gracefully shuts down all application components.
//
// ============================================================
// DEVELOPER: Shutdown order is critical
// ============================================================
// Components are shut down in reverse dependency order:
// 1. Stop accepting new requests (gRPC health NOT_SERVING, HTTP)
// 2. Stop the price feed
// 3. Stop the engine: queued requests are answered, in-flight
//    dispatches get SHUTDOWN_GRACE, pending writes are flushed
// 4. Close the store and external connections (Redis, NATS)
// 5. Flush telemetry data (OpenTelemetry)
//
// IMPORTANT: Shutdown errors are logged but don't stop the
// shutdown sequence. Each component gets a chance to clean up.
// ============================================================
func (a *App) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down application...")

	ctx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownGrace+2*a.cfg.StoreTimeout)
	defer cancel()

	// ============================================================
	// Step 1: Shutdown servers (stop accepting new requests)
	// ============================================================
	if a.grpcServer != nil {
		if err := a.grpcServer.Shutdown(ctx); err != nil {
			logrus.Errorf("gRPC server shutdown error: %v", err)
		}
	}
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logrus.Errorf("HTTP server shutdown error: %v", err)
		}
	}

	// ============================================================
	// Step 2 and 3: Stop the feed, then the engine
	// ============================================================
	if a.stopFeed != nil {
		a.stopFeed()
	}
	if a.stopEngine != nil {
		a.stopEngine()
		select {
		case <-a.engine.Done():
		case <-ctx.Done():
			logrus.Error("engine did not stop before the shutdown deadline")
		}
	}

	// ============================================================
	// Step 4: Close external connections
	// ============================================================
	a.closeConnections()

	// ============================================================
	// Step 5: Flush telemetry data
	// ============================================================
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			logrus.Errorf("telemetry shutdown error: %v", err)
		}
	}

	logrus.Info("application shutdown complete")
	return nil
}
