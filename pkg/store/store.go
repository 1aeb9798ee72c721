// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package store persists pipeline snapshots.
package store

import (
	"context"
	"errors"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store holds one snapshot per pipeline, addressed by pipeline id.
// Implementations must be safe for concurrent use. Operations are not
// transactional across pipelines.
type Store interface {
	// Put writes the full snapshot, replacing any previous one.
	Put(ctx context.Context, p *pipeline.Pipeline) error

	// Get returns the snapshot for id, or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*pipeline.Pipeline, error)

	// Delete removes the snapshot for id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every stored snapshot. Used to rehydrate the engine at startup.
	List(ctx context.Context) ([]*pipeline.Pipeline, error)

	Close() error
}
