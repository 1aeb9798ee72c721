package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/listen-rs/listen-engine/pkg/action"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// DefaultOrderQueue is the Redis list the external swap executor consumes.
const DefaultOrderQueue = "orders:pending"

// Order is one swap handed to the external executor.
type Order struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	PipelineID  string    `json:"pipeline_id"`
	StepID      string    `json:"step_id"`
	InputToken  string    `json:"input_token"`
	OutputToken string    `json:"output_token"`
	Amount      string    `json:"amount"`
	SlippageBps int       `json:"slippage_bps"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrderQueue enqueues swap orders on a Redis list. Success means the order was
// queued, not that it settled on chain.
type OrderQueue struct {
	client *redis.Client
	queue  string
}

func NewOrderQueue(client *redis.Client, queue string) *OrderQueue {
	return &OrderQueue{client: client, queue: queue}
}

func (q *OrderQueue) Kind() pipeline.ActionKind { return pipeline.KindSwap }

func (q *OrderQueue) Name() string { return OrderQueueType }

func (q *OrderQueue) Execute(ctx context.Context, req action.Request) error {
	swap, ok := req.Action.(pipeline.Swap)
	if !ok {
		return action.Permanent(fmt.Errorf("%w: %T", action.ErrUnsupportedAction, req.Action))
	}

	order := Order{
		OrderID:     uuid.NewString(),
		UserID:      req.UserID,
		PipelineID:  req.PipelineID,
		StepID:      req.StepID,
		InputToken:  swap.InputToken,
		OutputToken: swap.OutputToken,
		Amount:      swap.Amount,
		SlippageBps: swap.SlippageBps,
		CreatedAt:   time.Now().UTC(),
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return action.Permanent(fmt.Errorf("failed to marshal order: %w", err))
	}

	if err := q.client.RPush(ctx, q.queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue order: %w", err)
	}
	return nil
}
