// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import "errors"

var (
	// ErrInvalidGraph indicates that a pipeline violates a structural invariant.
	// The wrapped *pipeline.GraphError carries the reason.
	ErrInvalidGraph = errors.New("invalid pipeline graph")

	// ErrNotFound indicates that the pipeline id is not in the registry.
	ErrNotFound = errors.New("pipeline not found")

	// ErrDuplicateID indicates that a pipeline with the same id is registered
	// or still being removed from the store.
	ErrDuplicateID = errors.New("duplicate pipeline id")

	// ErrStore indicates that the durable store rejected an admission write.
	ErrStore = errors.New("store error")

	// ErrDispatch wraps an executor failure recorded against a pipeline.
	ErrDispatch = errors.New("dispatch error")

	// ErrTimeout indicates the caller gave up waiting on the mailbox or the reply.
	ErrTimeout = errors.New("engine request timed out")

	// ErrEngineStopped indicates the engine is no longer processing messages.
	ErrEngineStopped = errors.New("engine stopped")

	// ErrAlreadyRunning is returned by Run and Rehydrate once the engine loop has started.
	ErrAlreadyRunning = errors.New("engine already running")
)
