package action_test

import (
	"errors"
	"testing"

	"github.com/listen-rs/listen-engine/pkg/action"
	actionBuiltin "github.com/listen-rs/listen-engine/pkg/action/builtin"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

func init() {
	// Register builtin executors without backends for all tests
	actionBuiltin.RegisterExecutors(&actionBuiltin.Dependencies{})
}

func TestCreateExecutor(t *testing.T) {
	exec, err := action.CreateExecutor(action.ExecutorConfig{Type: actionBuiltin.LogNotificationType, Enabled: true})
	if err != nil {
		t.Fatalf("CreateExecutor() error = %v", err)
	}
	if exec.Kind() != pipeline.KindNotification {
		t.Errorf("Kind() = %s", exec.Kind())
	}
}

func TestCreateExecutor_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config action.ExecutorConfig
		want   error
	}{
		{"disabled", action.ExecutorConfig{Type: actionBuiltin.LogSwapType}, action.ErrExecutorDisabled},
		{"unknown type", action.ExecutorConfig{Type: "carrier_pigeon", Enabled: true}, action.ErrInvalidConfig},
		{"redis without client", action.ExecutorConfig{Type: actionBuiltin.OrderQueueType, Enabled: true}, action.ErrInvalidConfig},
		{"nats without conn", action.ExecutorConfig{Type: actionBuiltin.NATSNotificationType, Enabled: true}, action.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := action.CreateExecutor(tt.config)
			if !errors.Is(err, tt.want) {
				t.Errorf("CreateExecutor() error = %v, expected %v", err, tt.want)
			}
		})
	}
}

func TestRegisterExecutors(t *testing.T) {
	registry := action.NewRegistry()
	configs := []action.ExecutorConfig{
		{Type: actionBuiltin.LogNotificationType, Enabled: true},
		{Type: actionBuiltin.LogSwapType, Enabled: true},
		{Type: actionBuiltin.OrderQueueType, Enabled: false},
	}

	if err := action.RegisterExecutors(registry, configs); err != nil {
		t.Fatalf("RegisterExecutors() error = %v", err)
	}
	if registry.Count() != 2 {
		t.Errorf("Count() = %d, expected 2", registry.Count())
	}

	// A second notifier collides with the first.
	err := action.RegisterExecutors(registry, []action.ExecutorConfig{{Type: actionBuiltin.LogNotificationType, Enabled: true}})
	if err == nil {
		t.Error("expected duplicate kind error")
	}
}
