// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/pkg/action"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// Message is a control request placed on the engine mailbox. Every message
// carries its own reply channel of capacity 1.
type Message interface {
	isMessage()
}

// AddPipeline validates, persists and registers a pipeline.
type AddPipeline struct {
	Pipeline *pipeline.Pipeline
	Reply    chan error
}

// GetPipeline returns a snapshot of a registered pipeline.
type GetPipeline struct {
	ID    string
	Reply chan GetResult
}

type GetResult struct {
	Pipeline *pipeline.Pipeline
	Err      error
}

// DeletePipeline unregisters a pipeline and schedules its store delete.
type DeletePipeline struct {
	ID    string
	Reply chan error
}

// ListPipelines returns snapshots of a user's pipelines, or all pipelines when UserID is empty.
type ListPipelines struct {
	UserID string
	Reply  chan ListResult
}

type ListResult struct {
	Pipelines []*pipeline.Pipeline
	Err       error
}

func (AddPipeline) isMessage()    {}
func (GetPipeline) isMessage()    {}
func (DeletePipeline) isMessage() {}
func (ListPipelines) isMessage()  {}

// dispatchResult folds a detached dispatch back into the engine loop.
type dispatchResult struct {
	PipelineID string
	StepID     string
	Outcome    action.Outcome
}

// reply delivers v without ever blocking the engine. Reply channels are
// single use with capacity 1, so the default branch only runs when a caller
// reused a channel.
func reply[T any](ch chan T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
		logrus.Warn("dropping engine reply: reply channel full")
	}
}
