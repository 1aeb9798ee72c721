package action

import (
	"testing"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	if registry == nil {
		t.Fatal("Expected non-nil registry")
	}

	if registry.Count() != 0 {
		t.Errorf("Expected empty registry, got count %d", registry.Count())
	}
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(&testExecutor{kind: pipeline.KindNotification}); err != nil {
		t.Fatalf("Failed to register executor: %v", err)
	}
	if err := registry.Register(&testExecutor{kind: pipeline.KindSwap}); err != nil {
		t.Fatalf("Failed to register executor: %v", err)
	}

	if registry.Count() != 2 {
		t.Errorf("Expected count 2, got %d", registry.Count())
	}

	// One executor per kind
	if err := registry.Register(&testExecutor{kind: pipeline.KindSwap}); err == nil {
		t.Error("Expected error when registering a second swap executor")
	}

	kinds := registry.Kinds()
	if len(kinds) != 2 || kinds[0] != pipeline.KindNotification || kinds[1] != pipeline.KindSwap {
		t.Errorf("Kinds() = %v", kinds)
	}
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	exec := &testExecutor{kind: pipeline.KindNotification}
	registry.Register(exec)

	if registry.Get(pipeline.KindNotification) != exec {
		t.Error("Expected to get the registered executor")
	}
	if registry.Get(pipeline.KindSwap) != nil {
		t.Error("Expected nil for unregistered kind")
	}
}
