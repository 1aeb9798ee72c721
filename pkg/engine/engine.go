// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package engine owns every live pipeline. A single goroutine serializes
// control requests, price events and dispatch outcomes, so pipeline state is
// never shared and never locked.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/pkg/action"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
	"github.com/listen-rs/listen-engine/pkg/store"
)

// Dispatcher runs a step's action. It must be safe for concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, req action.Request) action.Outcome
}

// Engine is the actor that owns the pipeline registry.
type Engine struct {
	store      store.Store
	dispatcher Dispatcher
	opts       options
	log        *logrus.Entry
	metrics    *Metrics
	persister  *persister

	mailbox chan Message
	results chan dispatchResult
	done    chan struct{}
	started atomic.Bool

	// owned by the engine goroutine once Run starts
	registry map[string]*pipeline.Pipeline
	inflight int

	dispatchCtx    context.Context
	cancelDispatch context.CancelFunc
	dispatchWG     sync.WaitGroup
}

// New creates an engine. Call Rehydrate, then Run.
func New(s store.Store, d Dispatcher, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dispatchCtx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:          s,
		dispatcher:     d,
		opts:           o,
		log:            o.logger,
		metrics:        o.metrics,
		persister:      newPersister(s, o),
		mailbox:        make(chan Message, o.mailboxCapacity),
		results:        make(chan dispatchResult, defaultResultCapacity),
		done:           make(chan struct{}),
		registry:       make(map[string]*pipeline.Pipeline),
		dispatchCtx:    dispatchCtx,
		cancelDispatch: cancel,
	}
}

// Client returns a request helper bound to this engine's mailbox.
func (e *Engine) Client() *Client {
	return &Client{mailbox: e.mailbox, done: e.done}
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Rehydrate loads every stored pipeline into the registry. It must be called
// before Run. Dispatches that were in flight when the previous process
// stopped are marked lost and are not attempted again.
func (e *Engine) Rehydrate(ctx context.Context) (int, error) {
	if e.started.Load() {
		return 0, ErrAlreadyRunning
	}

	snapshots, err := e.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: rehydrate: %v", ErrStore, err)
	}

	now := e.opts.now()
	loaded := 0
	for _, p := range snapshots {
		if p == nil || p.ID == "" {
			continue
		}
		if _, dup := e.registry[p.ID]; dup {
			continue
		}

		lost := 0
		for _, id := range sortedStepIDs(p) {
			step := p.Steps[id]
			if step != nil && step.Dispatch != nil && step.Dispatch.State == pipeline.DispatchPending {
				step.Dispatch.State = pipeline.DispatchLost
				p.RecordFailure(id, "dispatch outcome lost across restart", now)
				lost++
			}
		}

		e.registry[p.ID] = p
		e.metrics.statusChanged("", p.Status)
		if lost > 0 {
			e.log.WithField("pipeline_id", p.ID).Warnf("%d dispatch(es) were in flight at shutdown; marked lost", lost)
			e.recomputeStatus(p)
			p.UpdatedAt = now
			e.persister.Put(p.Clone())
		}
		loaded++
	}

	e.log.Infof("rehydrated %d pipelines", loaded)
	return loaded, nil
}

// Run processes the mailbox, the price stream and dispatch outcomes until ctx
// is cancelled. A closed prices channel only stops evaluation. On shutdown,
// messages already in the mailbox are answered, in-flight dispatches get the
// shutdown grace period to report, and the write-behind queue is flushed.
func (e *Engine) Run(ctx context.Context, prices <-chan pipeline.PriceEvent) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(e.done)

	e.persister.start()
	e.log.Infof("engine started (mailbox capacity %d)", cap(e.mailbox))

	for {
		e.metrics.mailbox(len(e.mailbox))

		select {
		case <-ctx.Done():
			e.shutdown()
			return nil

		case msg := <-e.mailbox:
			e.handle(ctx, msg)

		case ev, ok := <-prices:
			if !ok {
				e.log.Warn("price stream closed; evaluation paused")
				prices = nil
				continue
			}
			e.onPrice(ev)

		case r := <-e.results:
			e.onDispatchResult(r)
		}
	}
}

func (e *Engine) shutdown() {
	e.log.Info("engine stopping")

	// answer everything already accepted
	drained := 0
	for {
		select {
		case msg := <-e.mailbox:
			e.handle(context.Background(), msg)
			drained++
			continue
		default:
		}
		break
	}
	if drained > 0 {
		e.log.Infof("answered %d queued requests during shutdown", drained)
	}

	if e.inflight > 0 {
		e.log.Infof("waiting up to %s for %d in-flight dispatches", e.opts.shutdownGrace, e.inflight)
		grace := time.NewTimer(e.opts.shutdownGrace)
	wait:
		for e.inflight > 0 {
			select {
			case r := <-e.results:
				e.onDispatchResult(r)
			case <-grace.C:
				e.log.Warnf("%d dispatches still in flight; their outcome will be marked lost on restart", e.inflight)
				break wait
			}
		}
		grace.Stop()
	}
	e.cancelDispatch()

	flushCtx, cancel := context.WithTimeout(context.Background(), e.opts.shutdownGrace+e.opts.storeTimeout)
	defer cancel()
	e.persister.Close(flushCtx)

	e.log.Info("engine stopped")
}

func (e *Engine) handle(ctx context.Context, msg Message) {
	switch m := msg.(type) {
	case AddPipeline:
		reply(m.Reply, e.addPipeline(ctx, m.Pipeline))
	case GetPipeline:
		reply(m.Reply, e.getPipeline(m.ID))
	case DeletePipeline:
		reply(m.Reply, e.deletePipeline(m.ID))
	case ListPipelines:
		reply(m.Reply, ListResult{Pipelines: e.listPipelines(m.UserID)})
	default:
		e.log.Errorf("ignoring unknown message %T", msg)
	}
}

// addPipeline persists before admitting: the registry never holds a pipeline
// the store has not accepted.
func (e *Engine) addPipeline(ctx context.Context, p *pipeline.Pipeline) error {
	if p == nil {
		e.metrics.admission("invalid")
		return fmt.Errorf("%w: nil pipeline", ErrInvalidGraph)
	}
	if err := pipeline.Validate(p); err != nil {
		e.metrics.admission("invalid")
		return fmt.Errorf("%w: %w", ErrInvalidGraph, err)
	}
	if _, exists := e.registry[p.ID]; exists || e.persister.Busy(p.ID) {
		e.metrics.admission("duplicate")
		return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
	}

	now := e.opts.now()
	admitted := p.Clone()
	admitted.ResetProgress()
	if admitted.CreatedAt.IsZero() {
		admitted.CreatedAt = now
	}
	admitted.UpdatedAt = now

	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.storeTimeout)
	defer cancel()
	if err := e.store.Put(putCtx, admitted); err != nil {
		e.metrics.admission("store_error")
		e.log.WithField("pipeline_id", p.ID).Errorf("admission write failed: %v", err)
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	e.registry[admitted.ID] = admitted
	e.metrics.statusChanged("", admitted.Status)
	e.metrics.admission("success")
	e.log.WithFields(logrus.Fields{
		"pipeline_id": admitted.ID,
		"user_id":     admitted.UserID,
		"steps":       len(admitted.Steps),
	}).Info("pipeline admitted")
	return nil
}

func (e *Engine) getPipeline(id string) GetResult {
	p, ok := e.registry[id]
	if !ok {
		return GetResult{Err: fmt.Errorf("%w: %s", ErrNotFound, id)}
	}
	return GetResult{Pipeline: p.Clone()}
}

// deletePipeline removes from the registry before the store delete is even
// queued, so a later Get can never observe the pipeline.
func (e *Engine) deletePipeline(id string) error {
	p, ok := e.registry[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(e.registry, id)
	e.metrics.statusChanged(p.Status, "")
	e.persister.Delete(id)

	e.log.WithField("pipeline_id", id).Info("pipeline deleted")
	return nil
}

func (e *Engine) listPipelines(userID string) []*pipeline.Pipeline {
	out := make([]*pipeline.Pipeline, 0)
	for _, p := range e.registry {
		if userID != "" && p.UserID != userID {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (e *Engine) setStatus(p *pipeline.Pipeline, status pipeline.Status) {
	if p.Status == status {
		return
	}
	e.metrics.statusChanged(p.Status, status)
	e.log.WithField("pipeline_id", p.ID).Debugf("pipeline %s -> %s", p.Status, status)
	p.Status = status
}

// recomputeStatus completes a pipeline once its frontier is empty and every
// dispatch has reported. Terminal statuses never change.
func (e *Engine) recomputeStatus(p *pipeline.Pipeline) {
	if p.Status.Terminal() {
		return
	}
	if len(p.CurrentSteps) == 0 && p.PendingDispatches() == 0 {
		e.setStatus(p, pipeline.StatusCompleted)
		return
	}
	if p.Status == pipeline.StatusPending && hasProgress(p) {
		e.setStatus(p, pipeline.StatusActive)
	}
}

func hasProgress(p *pipeline.Pipeline) bool {
	for _, step := range p.Steps {
		if step.Status != pipeline.StatusPending {
			return true
		}
	}
	return false
}

func sortedStepIDs(p *pipeline.Pipeline) []string {
	ids := make([]string, 0, len(p.Steps))
	for id := range p.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
