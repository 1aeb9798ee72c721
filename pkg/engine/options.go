// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMailboxCapacity bounds outstanding control requests.
	DefaultMailboxCapacity = 1000

	defaultResultCapacity = 256
	defaultStoreTimeout   = 5 * time.Second
	defaultShutdownGrace  = 5 * time.Second
)

type options struct {
	mailboxCapacity int
	storeTimeout    time.Duration
	shutdownGrace   time.Duration
	now             func() time.Time
	logger          *logrus.Entry
	metrics         *Metrics
	persistBackoff  func() backoff.BackOff
}

func defaultOptions() options {
	return options{
		mailboxCapacity: DefaultMailboxCapacity,
		storeTimeout:    defaultStoreTimeout,
		shutdownGrace:   defaultShutdownGrace,
		now:             func() time.Time { return time.Now().UTC() },
		logger:          logrus.WithField("component", "engine"),
		persistBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

// Option configures an Engine.
type Option func(*options)

// WithMailboxCapacity sets the control mailbox capacity.
func WithMailboxCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.mailboxCapacity = n
		}
	}
}

// WithStoreTimeout bounds each synchronous and write-behind store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.storeTimeout = d
		}
	}
}

// WithShutdownGrace bounds how long Run waits for in-flight dispatches after cancellation.
func WithShutdownGrace(d time.Duration) Option {
	return func(o *options) {
		o.shutdownGrace = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logrus.Entry) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPersistBackoff sets the retry policy of the write-behind persister.
func WithPersistBackoff(f func() backoff.BackOff) Option {
	return func(o *options) {
		o.persistBackoff = f
	}
}
