package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/listen-rs/listen-engine/pkg/action"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// DefaultNotificationChannelPrefix is prepended to the user id to form the channel.
const DefaultNotificationChannelPrefix = "notifications:"

// NotificationMessage is the payload published for a notification.
type NotificationMessage struct {
	UserID     string    `json:"user_id"`
	PipelineID string    `json:"pipeline_id"`
	StepID     string    `json:"step_id"`
	Message    string    `json:"message"`
	SentAt     time.Time `json:"sent_at"`
}

func newNotificationMessage(req action.Request, n pipeline.Notification) NotificationMessage {
	return NotificationMessage{
		UserID:     req.UserID,
		PipelineID: req.PipelineID,
		StepID:     req.StepID,
		Message:    n.Message,
		SentAt:     time.Now().UTC(),
	}
}

// RedisNotifier publishes notifications on a per-user Redis channel.
type RedisNotifier struct {
	client *redis.Client
	prefix string
}

func NewRedisNotifier(client *redis.Client, prefix string) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: prefix}
}

func (n *RedisNotifier) Kind() pipeline.ActionKind { return pipeline.KindNotification }

func (n *RedisNotifier) Name() string { return RedisNotificationType }

// Execute publishes the message. Having no subscriber is not an error: the
// notification was handed to the delivery channel.
func (n *RedisNotifier) Execute(ctx context.Context, req action.Request) error {
	msg, ok := req.Action.(pipeline.Notification)
	if !ok {
		return action.Permanent(fmt.Errorf("%w: %T", action.ErrUnsupportedAction, req.Action))
	}

	payload, err := json.Marshal(newNotificationMessage(req, msg))
	if err != nil {
		return action.Permanent(fmt.Errorf("failed to marshal notification: %w", err))
	}

	if err := n.client.Publish(ctx, n.prefix+req.UserID, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
