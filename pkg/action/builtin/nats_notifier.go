package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/listen-rs/listen-engine/pkg/action"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// DefaultNotificationSubjectPrefix forms subjects like notifications.<user_id>.
const DefaultNotificationSubjectPrefix = "notifications."

// Publisher is the subset of *nats.Conn used to publish.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes notifications on a per-user NATS subject.
type NATSNotifier struct {
	conn   Publisher
	prefix string
}

func NewNATSNotifier(conn Publisher, prefix string) *NATSNotifier {
	return &NATSNotifier{conn: conn, prefix: prefix}
}

func (n *NATSNotifier) Kind() pipeline.ActionKind { return pipeline.KindNotification }

func (n *NATSNotifier) Name() string { return NATSNotificationType }

func (n *NATSNotifier) Execute(ctx context.Context, req action.Request) error {
	msg, ok := req.Action.(pipeline.Notification)
	if !ok {
		return action.Permanent(fmt.Errorf("%w: %T", action.ErrUnsupportedAction, req.Action))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(newNotificationMessage(req, msg))
	if err != nil {
		return action.Permanent(fmt.Errorf("failed to marshal notification: %w", err))
	}

	if err := n.conn.Publish(n.prefix+req.UserID, payload); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
