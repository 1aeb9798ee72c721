package action

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/pkg/common"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

const defaultAttemptTimeout = 10 * time.Second

// Dispatcher invokes the registered executor for a triggered step, applying
// the retry policy of the action kind.
type Dispatcher struct {
	registry       *Registry
	retry          map[pipeline.ActionKind]RetryConfig
	attemptTimeout time.Duration
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRetry overrides the retry policy for one action kind.
func WithRetry(kind pipeline.ActionKind, cfg RetryConfig) DispatcherOption {
	return func(d *Dispatcher) {
		d.retry[kind] = cfg
	}
}

// WithAttemptTimeout bounds each executor call.
func WithAttemptTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.attemptTimeout = timeout
	}
}

// NewDispatcher creates a dispatcher backed by registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:       registry,
		retry:          make(map[pipeline.ActionKind]RetryConfig),
		attemptTimeout: defaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the executor registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

func (d *Dispatcher) policy(kind pipeline.ActionKind) RetryConfig {
	if cfg, ok := d.retry[kind]; ok {
		return cfg
	}
	return DefaultRetry(kind)
}

// Dispatch executes req.Action and reports how it went. It never panics on
// executor errors; every failure is carried in Outcome.Err.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Outcome {
	start := time.Now()
	if req.Action == nil {
		return Outcome{Err: fmt.Errorf("%w: step %s has no action", ErrUnsupportedAction, req.StepID)}
	}
	kind := req.Action.Kind()

	scope := common.NewScope(ctx, "action.Dispatch")
	defer scope.Finish()
	scope.SetAttributes("pipeline.id", req.PipelineID)
	scope.SetAttributes("step.id", req.StepID)
	scope.SetAttributes("action.kind", string(kind))

	exec := d.registry.Get(kind)
	if exec == nil {
		err := fmt.Errorf("%w: %s", ErrExecutorNotFound, kind)
		scope.TraceError(err)
		return Outcome{Kind: kind, Duration: time.Since(start), Err: err}
	}

	log := scope.Log.WithFields(logrus.Fields{
		"pipeline_id": req.PipelineID,
		"step_id":     req.StepID,
		"executor":    exec.Name(),
	})

	attempts := 0
	operation := func() error {
		attempts++
		attempt := scope.NewChildScope("action.Attempt")
		defer attempt.Finish()
		attempt.SetAttributes("action.attempt", attempts)

		attemptCtx, cancel := context.WithTimeout(attempt.Ctx, d.attemptTimeout)
		defer cancel()

		err := exec.Execute(attemptCtx, req)
		if err != nil {
			attempt.TraceError(err)
			scope.TraceEvent(fmt.Sprintf("attempt %d failed", attempts))
			log.Warnf("attempt %d of %s failed: %v", attempts, kind, err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(d.policy(kind).backOff(), scope.Ctx))
	outcome := Outcome{
		Kind:     kind,
		Executor: exec.Name(),
		Attempts: attempts,
		Duration: time.Since(start),
		Err:      err,
	}
	scope.SetAttributes("action.attempts", attempts)

	if err != nil {
		scope.TraceError(err)
		log.Errorf("%s dispatch failed after %d attempt(s): %v", kind, attempts, err)
		return outcome
	}

	log.Infof("%s dispatched in %s", kind, outcome.Duration)
	return outcome
}
