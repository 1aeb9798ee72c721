// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// MemoryStore is a process-local Store. Snapshots are stored encoded so
// callers never share memory with the store, matching the durable backends.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool

	// FailPut, when set, is returned by Put instead of writing.
	FailPut error
	// FailDelete, when set, is returned by Delete.
	FailDelete error

	puts    int
	deletes int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, p *pipeline.Pipeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.FailPut != nil {
		return m.FailPut
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline %s: %w", p.ID, err)
	}
	m.data[p.ID] = body
	m.puts++
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*pipeline.Pipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	body, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	var p pipeline.Pipeline
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.FailDelete != nil {
		return m.FailDelete
	}
	delete(m.data, id)
	m.deletes++
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]*pipeline.Pipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*pipeline.Pipeline, 0, len(ids))
	for _, id := range ids {
		var p pipeline.Pipeline
		if err := json.Unmarshal(m.data[id], &p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, nil
}

// SetFailPut changes the injected Put failure under the store lock.
func (m *MemoryStore) SetFailPut(err error) {
	m.mu.Lock()
	m.FailPut = err
	m.mu.Unlock()
}

// SetFailDelete changes the injected Delete failure under the store lock.
func (m *MemoryStore) SetFailDelete(err error) {
	m.mu.Lock()
	m.FailDelete = err
	m.mu.Unlock()
}

// Len returns the number of stored snapshots.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Ops returns the number of successful puts and deletes.
func (m *MemoryStore) Ops() (puts, deletes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts, m.deletes
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
