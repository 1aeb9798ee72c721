package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/listen-rs/listen-engine/pkg/action"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

// mockPublisher records NATS publishes
type mockPublisher struct {
	subject string
	data    []byte
	err     error
}

func (m *mockPublisher) Publish(subject string, data []byte) error {
	m.subject = subject
	m.data = data
	return m.err
}

func notification(msg string) action.Request {
	return action.Request{PipelineID: "p-1", StepID: "alert", UserID: "user-7", Action: pipeline.Notification{Message: msg}}
}

func swap() action.Request {
	return action.Request{
		PipelineID: "p-1",
		StepID:     "buy",
		UserID:     "user-7",
		Action:     pipeline.Swap{InputToken: "USDC", OutputToken: "SOL", Amount: "1000000", SlippageBps: 50},
	}
}

func TestOrderQueue_Execute(t *testing.T) {
	client, mr := setupTestRedis(t)
	q := NewOrderQueue(client, DefaultOrderQueue)

	if err := q.Execute(context.Background(), swap()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	items, err := mr.List(DefaultOrderQueue)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 queued order, got %d", len(items))
	}

	var order Order
	if err := json.Unmarshal([]byte(items[0]), &order); err != nil {
		t.Fatalf("queued order is not JSON: %v", err)
	}
	if order.OrderID == "" {
		t.Error("expected generated order id")
	}
	if order.UserID != "user-7" || order.Amount != "1000000" || order.SlippageBps != 50 {
		t.Errorf("order = %+v", order)
	}
}

func TestOrderQueue_RejectsNotification(t *testing.T) {
	client, _ := setupTestRedis(t)
	err := NewOrderQueue(client, DefaultOrderQueue).Execute(context.Background(), notification("hi"))
	if !errors.Is(err, action.ErrUnsupportedAction) {
		t.Errorf("Execute() error = %v, expected ErrUnsupportedAction", err)
	}
}

func TestRedisNotifier_Execute(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, DefaultNotificationChannelPrefix+"user-7")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	n := NewRedisNotifier(client, DefaultNotificationChannelPrefix)
	if err := n.Execute(ctx, notification("SOL crossed 100")); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got NotificationMessage
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if got.Message != "SOL crossed 100" || got.StepID != "alert" {
			t.Errorf("notification = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestRedisNotifier_ConnectionFailure(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	err := NewRedisNotifier(client, DefaultNotificationChannelPrefix).Execute(context.Background(), notification("x"))
	if err == nil {
		t.Fatal("expected publish error with redis down")
	}
}

func TestNATSNotifier_Execute(t *testing.T) {
	pub := &mockPublisher{}
	n := NewNATSNotifier(pub, DefaultNotificationSubjectPrefix)

	if err := n.Execute(context.Background(), notification("hello")); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if pub.subject != "notifications.user-7" {
		t.Errorf("subject = %q", pub.subject)
	}

	pub.err = errors.New("nats: connection closed")
	if err := n.Execute(context.Background(), notification("hello")); err == nil {
		t.Error("expected publish error")
	}
}

func TestLogExecutors(t *testing.T) {
	ctx := context.Background()
	if err := NewLogNotifier().Execute(ctx, notification("hi")); err != nil {
		t.Errorf("LogNotifier.Execute() error = %v", err)
	}
	if err := NewLogSwapper().Execute(ctx, swap()); err != nil {
		t.Errorf("LogSwapper.Execute() error = %v", err)
	}
	if err := NewLogSwapper().Execute(ctx, notification("hi")); !errors.Is(err, action.ErrUnsupportedAction) {
		t.Errorf("LogSwapper.Execute(notification) error = %v", err)
	}
}
