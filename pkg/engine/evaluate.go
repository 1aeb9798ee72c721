// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/pkg/action"
	"github.com/listen-rs/listen-engine/pkg/condition"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// onPrice evaluates one price event against every live pipeline.
func (e *Engine) onPrice(ev pipeline.PriceEvent) {
	e.metrics.event()
	now := e.opts.now()

	for _, p := range e.registry {
		if p.Status.Terminal() {
			continue
		}
		if e.evaluate(p, ev, now) {
			p.UpdatedAt = now
			e.persister.Put(p.Clone())
		}
	}
}

// interested reports whether ev can affect any frontier step of p.
// Unconditioned steps fire on whatever event comes first.
func interested(p *pipeline.Pipeline, ev pipeline.PriceEvent) bool {
	for _, id := range p.CurrentSteps {
		step := p.Steps[id]
		if step == nil || len(step.Conditions) == 0 || condition.StepReferences(step, ev.Asset) {
			return true
		}
	}
	return false
}

// evaluate applies ev to one pipeline and reports whether it changed. A panic
// fails this pipeline only.
//
// Successors that enter the frontier when a step completes are evaluated
// against the same ev before evaluate returns, so a chain whose guards all
// hold for ev completes in one call. No step is evaluated twice for one event.
func (e *Engine) evaluate(p *pipeline.Pipeline, ev pipeline.PriceEvent, now time.Time) (changed bool) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.panicked()
			e.log.WithField("pipeline_id", p.ID).Errorf("evaluation panicked, failing pipeline: %v", r)
			p.RecordFailure("", fmt.Sprintf("evaluation panic: %v", r), now)
			e.setStatus(p, pipeline.StatusFailed)
			changed = true
		}
	}()

	if !interested(p, ev) {
		return false
	}
	if p.Status == pipeline.StatusPending {
		e.setStatus(p, pipeline.StatusActive)
	}
	changed = true

	// Re-scan until no step completes: successors entering the frontier see
	// the same event. Each step is evaluated at most once per event.
	seen := make(map[string]bool, len(p.CurrentSteps))
	for progressed := true; progressed; {
		progressed = false
		frontier := append([]string(nil), p.CurrentSteps...)

		for _, id := range frontier {
			if seen[id] {
				continue
			}
			step := p.Steps[id]
			if step == nil {
				seen[id] = true
				p.RemoveFromFrontier(id)
				p.RecordFailure(id, "frontier references unknown step", now)
				continue
			}
			if len(step.Conditions) > 0 && !condition.StepReferences(step, ev.Asset) {
				continue
			}
			seen[id] = true

			for i := range step.Conditions {
				if condition.Evaluate(&step.Conditions[i], ev, now) == condition.Triggered {
					e.metrics.conditionTriggered()
				}
			}

			if !condition.AllTriggered(step) {
				if step.Status == pipeline.StatusPending {
					step.Status = pipeline.StatusActive
				}
				continue
			}

			e.completeStep(p, step, now)
			progressed = true
		}
	}

	e.recomputeStatus(p)
	return changed
}

// completeStep moves a triggered step out of the frontier, hands its action
// to the dispatcher and enters its successors.
func (e *Engine) completeStep(p *pipeline.Pipeline, step *pipeline.Step, now time.Time) {
	step.Status = pipeline.StatusCompleted
	p.RemoveFromFrontier(step.ID)
	step.Dispatch = &pipeline.DispatchRecord{State: pipeline.DispatchPending, StartedAt: now}
	e.metrics.stepCompleted()

	for _, next := range step.NextSteps {
		successor := p.Steps[next]
		if successor == nil || successor.Status == pipeline.StatusCompleted {
			continue
		}
		p.AddToFrontier(next)
	}

	e.log.WithFields(logrus.Fields{
		"pipeline_id": p.ID,
		"step_id":     step.ID,
		"frontier":    p.CurrentSteps,
	}).Info("step triggered")

	e.spawnDispatch(action.Request{
		PipelineID: p.ID,
		StepID:     step.ID,
		UserID:     p.UserID,
		Action:     step.Action,
	})
}

// spawnDispatch runs the dispatcher outside the engine goroutine and posts
// the outcome back through the results queue.
func (e *Engine) spawnDispatch(req action.Request) {
	e.inflight++
	e.metrics.inflight(e.inflight)
	e.dispatchWG.Add(1)

	go func() {
		defer e.dispatchWG.Done()

		var outcome action.Outcome
		func() {
			defer func() {
				if r := recover(); r != nil {
					outcome = action.Outcome{Err: fmt.Errorf("dispatcher panic: %v", r)}
					if req.Action != nil {
						outcome.Kind = req.Action.Kind()
					}
				}
			}()
			outcome = e.dispatcher.Dispatch(e.dispatchCtx, req)
		}()

		select {
		case e.results <- dispatchResult{PipelineID: req.PipelineID, StepID: req.StepID, Outcome: outcome}:
		case <-e.done:
		}
	}()
}

// onDispatchResult records the outcome on the step. Failed swaps fail the
// pipeline; failed notifications are only recorded.
func (e *Engine) onDispatchResult(r dispatchResult) {
	e.inflight--
	e.metrics.inflight(e.inflight)
	e.metrics.dispatched(r.Outcome.Kind, r.Outcome.Succeeded(), r.Outcome.Duration.Seconds())

	log := e.log.WithField("pipeline_id", r.PipelineID).WithField("step_id", r.StepID)
	p, ok := e.registry[r.PipelineID]
	if !ok {
		log.Debug("dispatch outcome for deleted pipeline ignored")
		return
	}
	step, ok := p.Steps[r.StepID]
	if !ok {
		return
	}

	now := e.opts.now()
	rec := step.Dispatch
	if rec == nil {
		rec = &pipeline.DispatchRecord{StartedAt: now}
		step.Dispatch = rec
	}
	rec.Attempts = r.Outcome.Attempts
	rec.FinishedAt = &now

	if r.Outcome.Err == nil {
		rec.State = pipeline.DispatchSucceeded
	} else {
		err := fmt.Errorf("%w: %v", ErrDispatch, r.Outcome.Err)
		rec.State = pipeline.DispatchFailed
		rec.Error = err.Error()
		p.RecordFailure(step.ID, err.Error(), now)

		if pipeline.LoadBearing(step.Action) && !p.Status.Terminal() {
			log.Errorf("load-bearing action failed, failing pipeline: %v", err)
			e.setStatus(p, pipeline.StatusFailed)
		} else {
			log.Warnf("action failed: %v", err)
		}
	}

	e.recomputeStatus(p)
	p.UpdatedAt = now
	e.persister.Put(p.Clone())
}
