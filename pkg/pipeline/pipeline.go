// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pipeline

import (
	"time"
)

// Status is the lifecycle state shared by pipelines and steps.
// Steps only ever use Pending, Active and Completed.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Pipeline is a user's automation workflow: a graph of steps plus execution state.
// Steps are owned by the pipeline and reference each other by id only.
type Pipeline struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	CurrentSteps []string         `json:"current_steps"`
	Steps        map[string]*Step `json:"steps"`
	Status       Status           `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Failures     []Failure        `json:"failures,omitempty"`
}

// Step is a node in the pipeline graph.
type Step struct {
	ID         string          `json:"id"`
	Conditions []Condition     `json:"conditions"`
	Action     Action          `json:"-"`
	NextSteps  []string        `json:"next_steps"`
	Status     Status          `json:"status"`
	Dispatch   *DispatchRecord `json:"dispatch,omitempty"`
}

// DispatchState tracks the single invocation attempt made for a step's action.
type DispatchState string

const (
	DispatchPending   DispatchState = "pending"
	DispatchSucceeded DispatchState = "succeeded"
	DispatchFailed    DispatchState = "failed"
	// DispatchLost marks an attempt whose outcome was never observed because
	// the engine restarted while it was in flight.
	DispatchLost DispatchState = "lost"
)

// DispatchRecord is the diagnostic attached to a completed step.
type DispatchRecord struct {
	State      DispatchState `json:"state"`
	Attempts   int           `json:"attempts,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Failure is a diagnostic recorded against a pipeline.
type Failure struct {
	StepID string    `json:"step_id,omitempty"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// PriceEvent is a market-data tick consumed by the evaluation loop.
type PriceEvent struct {
	Asset     string    `json:"asset"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates an empty pending pipeline owned by userID.
func New(id, userID string, createdAt time.Time) *Pipeline {
	return &Pipeline{
		ID:        id,
		UserID:    userID,
		Steps:     make(map[string]*Step),
		Status:    StatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// NewStep creates a pending step.
func NewStep(id string, action Action, conditions ...Condition) *Step {
	return &Step{
		ID:         id,
		Conditions: conditions,
		Action:     action,
		Status:     StatusPending,
	}
}

// Then appends successor step ids and returns the step for chaining.
func (s *Step) Then(ids ...string) *Step {
	s.NextSteps = append(s.NextSteps, ids...)
	return s
}

// AddStep registers a step in the pipeline's node set.
func (p *Pipeline) AddStep(step *Step) *Pipeline {
	if p.Steps == nil {
		p.Steps = make(map[string]*Step)
	}
	p.Steps[step.ID] = step
	return p
}

// Start sets the initial frontier.
func (p *Pipeline) Start(ids ...string) *Pipeline {
	p.CurrentSteps = append(p.CurrentSteps, ids...)
	return p
}

// InFrontier reports whether the step is awaiting its trigger.
func (p *Pipeline) InFrontier(id string) bool {
	for _, cur := range p.CurrentSteps {
		if cur == id {
			return true
		}
	}
	return false
}

// AddToFrontier appends id to the frontier unless it is already present.
func (p *Pipeline) AddToFrontier(id string) bool {
	if p.InFrontier(id) {
		return false
	}
	p.CurrentSteps = append(p.CurrentSteps, id)
	return true
}

// RemoveFromFrontier drops id from the frontier, preserving order.
func (p *Pipeline) RemoveFromFrontier(id string) {
	out := p.CurrentSteps[:0]
	for _, cur := range p.CurrentSteps {
		if cur != id {
			out = append(out, cur)
		}
	}
	p.CurrentSteps = out
}

// PendingDispatches counts steps whose action outcome has not been folded back yet.
func (p *Pipeline) PendingDispatches() int {
	n := 0
	for _, step := range p.Steps {
		if step.Dispatch != nil && step.Dispatch.State == DispatchPending {
			n++
		}
	}
	return n
}

// ResetProgress clears the state only the engine may set: every step goes
// back to Pending with no dispatch record and unlatched conditions, and the
// pipeline itself returns to Pending without diagnostics.
func (p *Pipeline) ResetProgress() {
	p.Status = StatusPending
	p.Failures = nil
	for _, step := range p.Steps {
		if step == nil {
			continue
		}
		step.Status = StatusPending
		step.Dispatch = nil
		for i := range step.Conditions {
			step.Conditions[i].Triggered = false
			step.Conditions[i].LastEvaluated = nil
		}
	}
}

// RecordFailure appends a diagnostic.
func (p *Pipeline) RecordFailure(stepID, reason string, at time.Time) {
	p.Failures = append(p.Failures, Failure{StepID: stepID, Reason: reason, At: at})
}

// Clone returns a deep copy that shares no mutable state with p.
func (p *Pipeline) Clone() *Pipeline {
	if p == nil {
		return nil
	}
	out := *p
	out.CurrentSteps = append(make([]string, 0, len(p.CurrentSteps)), p.CurrentSteps...)
	if p.Failures != nil {
		out.Failures = append([]Failure(nil), p.Failures...)
	}
	out.Steps = make(map[string]*Step, len(p.Steps))
	for id, step := range p.Steps {
		out.Steps[id] = step.Clone()
	}
	return &out
}

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	out := *s
	out.NextSteps = append(make([]string, 0, len(s.NextSteps)), s.NextSteps...)
	out.Conditions = make([]Condition, len(s.Conditions))
	for i, c := range s.Conditions {
		out.Conditions[i] = c.clone()
	}
	if s.Dispatch != nil {
		d := *s.Dispatch
		if s.Dispatch.FinishedAt != nil {
			t := *s.Dispatch.FinishedAt
			d.FinishedAt = &t
		}
		out.Dispatch = &d
	}
	return &out
}
