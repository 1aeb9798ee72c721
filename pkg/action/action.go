package action

import (
	"context"
	"time"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// Executor performs one kind of step action.
// Executors are registered in a Registry and invoked by the Dispatcher.
type Executor interface {
	// Kind returns the action kind this executor handles.
	Kind() pipeline.ActionKind

	// Name returns a human-readable executor name, used in logs and metrics.
	Name() string

	// Execute performs the action once. A nil return means the side effect was
	// accepted by the downstream system. Return Permanent(err) to stop retries.
	Execute(ctx context.Context, req Request) error
}

// Request carries everything an executor needs to act for a triggered step.
type Request struct {
	PipelineID string
	StepID     string
	UserID     string
	Action     pipeline.Action
}

// Outcome is the result of dispatching one request.
type Outcome struct {
	Kind     pipeline.ActionKind
	Executor string
	Attempts int
	Duration time.Duration
	Err      error
}

// Succeeded reports whether the action was accepted.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}
