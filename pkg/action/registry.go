package action

import (
	"fmt"
	"sort"
	"sync"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// Registry manages available executors, one per action kind.
// It provides thread-safe registration and lookup.
type Registry struct {
	executors map[pipeline.ActionKind]Executor
	mu        sync.RWMutex
}

// NewRegistry creates a new empty executor registry.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[pipeline.ActionKind]Executor),
	}
}

// Register adds an executor to the registry.
// Returns an error if an executor for the same kind already exists.
func (r *Registry) Register(exec Executor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.executors[exec.Kind()]; exists {
		return fmt.Errorf("executor for %s already registered (%s)", exec.Kind(), existing.Name())
	}

	r.executors[exec.Kind()] = exec
	return nil
}

// Get returns the executor for kind, or nil.
func (r *Registry) Get(kind pipeline.ActionKind) Executor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.executors[kind]
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []pipeline.ActionKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]pipeline.ActionKind, 0, len(r.executors))
	for kind := range r.executors {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Count returns the number of registered executors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.executors)
}
