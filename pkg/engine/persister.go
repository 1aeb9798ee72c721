// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
	"github.com/listen-rs/listen-engine/pkg/store"
)

// writeOp is the latest durable intent for one pipeline id.
type writeOp struct {
	snapshot *pipeline.Pipeline // nil means delete
}

func (op writeOp) name() string {
	if op.snapshot == nil {
		return "delete"
	}
	return "put"
}

// persister is the write-behind path to the store. It keeps only the newest
// op per id, so a burst of mutations costs one write and a delete always
// supersedes an older put. A single worker applies ops.
type persister struct {
	store    store.Store
	timeout  time.Duration
	newBack  func() backoff.BackOff
	log      *logrus.Entry
	metrics  *Metrics
	mu       sync.Mutex
	pending  map[string]writeOp
	inflight map[string]bool
	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	stopOnce sync.Once
}

func newPersister(s store.Store, o options) *persister {
	ctx, cancel := context.WithCancel(context.Background())
	return &persister{
		store:    s,
		timeout:  o.storeTimeout,
		newBack:  o.persistBackoff,
		log:      o.logger.WithField("subcomponent", "persister"),
		metrics:  o.metrics,
		pending:  make(map[string]writeOp),
		inflight: make(map[string]bool),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Put schedules a snapshot write. The snapshot must not be mutated afterwards.
func (p *persister) Put(snapshot *pipeline.Pipeline) {
	p.enqueue(snapshot.ID, writeOp{snapshot: snapshot})
}

// Delete schedules a delete, replacing any pending put for id.
func (p *persister) Delete(id string) {
	p.enqueue(id, writeOp{})
}

func (p *persister) enqueue(id string, op writeOp) {
	p.mu.Lock()
	p.pending[id] = op
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Busy reports whether a write for id is queued or being applied.
func (p *persister) Busy(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, queued := p.pending[id]
	return queued || p.inflight[id]
}

// Pending returns the number of queued ops.
func (p *persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *persister) start() {
	p.started = true
	go p.run()
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.stop:
			p.drain()
			return
		}
	}
}

// Close flushes queued ops and stops the worker. Writes still failing when
// ctx ends are abandoned.
func (p *persister) Close(ctx context.Context) {
	p.stopOnce.Do(func() { close(p.stop) })
	if !p.started {
		p.cancel()
		return
	}
	select {
	case <-p.done:
	case <-ctx.Done():
		p.cancel()
		<-p.done
	}
	p.cancel()
}

func (p *persister) stopping() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

func (p *persister) drain() {
	for {
		id, op, ok := p.take()
		if !ok {
			return
		}
		p.apply(id, op)
		if p.ctx.Err() != nil {
			return
		}
	}
}

func (p *persister) take() (string, writeOp, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, op := range p.pending {
		delete(p.pending, id)
		p.inflight[id] = true
		return id, op, true
	}
	return "", writeOp{}, false
}

func (p *persister) superseded(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pending[id]
	return ok
}

func (p *persister) apply(id string, op writeOp) {
	defer func() {
		p.mu.Lock()
		delete(p.inflight, id)
		p.mu.Unlock()
	}()

	attempt := 0
	operation := func() error {
		// a newer op for the same id makes this one moot
		if attempt > 0 && p.superseded(id) {
			return nil
		}
		attempt++

		ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
		defer cancel()
		if op.snapshot == nil {
			return p.store.Delete(ctx, id)
		}
		return p.store.Put(ctx, op.snapshot)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(p.newBack(), p.ctx), func(err error, next time.Duration) {
		p.log.Warnf("store %s of pipeline %s failed, retrying in %s: %v", op.name(), id, next, err)
	})
	if err == nil {
		return
	}

	p.metrics.storeFailure(op.name())
	if p.stopping() || p.ctx.Err() != nil {
		p.log.Errorf("abandoning store %s of pipeline %s: %v", op.name(), id, err)
		return
	}

	p.log.Errorf("store %s of pipeline %s failed after %d attempts, requeueing: %v", op.name(), id, attempt, err)
	p.mu.Lock()
	if _, newer := p.pending[id]; !newer {
		p.pending[id] = op
	}
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}
