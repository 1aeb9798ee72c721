// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"context"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// Client sends control requests to an engine. Sending blocks while the
// mailbox is full; a ctx that ends first yields ErrTimeout and the request
// was not accepted. Once accepted, a ctx that ends before the reply also
// yields ErrTimeout, but the engine still processes the request.
type Client struct {
	mailbox chan<- Message
	done    <-chan struct{}
}

// Add submits a pipeline for admission.
func (c *Client) Add(ctx context.Context, p *pipeline.Pipeline) error {
	ch := make(chan error, 1)
	res, err := request(ctx, c, AddPipeline{Pipeline: p, Reply: ch}, ch)
	if err != nil {
		return err
	}
	return res
}

// Get returns a snapshot of the pipeline.
func (c *Client) Get(ctx context.Context, id string) (*pipeline.Pipeline, error) {
	ch := make(chan GetResult, 1)
	res, err := request(ctx, c, GetPipeline{ID: id, Reply: ch}, ch)
	if err != nil {
		return nil, err
	}
	return res.Pipeline, res.Err
}

// Delete removes the pipeline.
func (c *Client) Delete(ctx context.Context, id string) error {
	ch := make(chan error, 1)
	res, err := request(ctx, c, DeletePipeline{ID: id, Reply: ch}, ch)
	if err != nil {
		return err
	}
	return res
}

// List returns the user's pipelines, or every pipeline for an empty userID.
func (c *Client) List(ctx context.Context, userID string) ([]*pipeline.Pipeline, error) {
	ch := make(chan ListResult, 1)
	res, err := request(ctx, c, ListPipelines{UserID: userID, Reply: ch}, ch)
	if err != nil {
		return nil, err
	}
	return res.Pipelines, res.Err
}

func request[T any](ctx context.Context, c *Client, msg Message, ch chan T) (T, error) {
	var zero T

	select {
	case <-c.done:
		return zero, ErrEngineStopped
	default:
	}

	select {
	case c.mailbox <- msg:
	case <-c.done:
		return zero, ErrEngineStopped
	case <-ctx.Done():
		return zero, ErrTimeout
	}

	select {
	case res := <-ch:
		return res, nil
	case <-c.done:
		// the reply may have been sent just before the engine stopped
		select {
		case res := <-ch:
			return res, nil
		default:
			return zero, ErrEngineStopped
		}
	case <-ctx.Done():
		return zero, ErrTimeout
	}
}
