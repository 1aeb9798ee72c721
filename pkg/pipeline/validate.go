// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pipeline

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()

	// base units of a token: a positive integer without sign or leading zeros
	baseUnits = regexp.MustCompile(`^[1-9][0-9]*$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("base_units", func(fl validator.FieldLevel) bool {
		return baseUnits.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// GraphError describes a structural invariant violation.
type GraphError struct {
	StepID string
	Reason string
}

func (e *GraphError) Error() string {
	if e.StepID == "" {
		return "invalid pipeline graph: " + e.Reason
	}
	return fmt.Sprintf("invalid pipeline graph: step %s: %s", e.StepID, e.Reason)
}

// Validate checks the structural invariants of a pipeline:
//   - every current step is a key of Steps
//   - every next_steps id is a key of Steps (no dangling edges)
//   - the graph induced by next_steps is acyclic
//   - every step is keyed by its own id and carries well-formed variants
//
// It is pure and never mutates p.
func Validate(p *Pipeline) error {
	if p == nil {
		return &GraphError{Reason: "pipeline is nil"}
	}
	if err := validate.Var(p.UserID, "required"); err != nil {
		return &GraphError{Reason: "user_id is required"}
	}
	if len(p.Steps) == 0 {
		return &GraphError{Reason: "pipeline has no steps"}
	}
	if len(p.CurrentSteps) == 0 {
		return &GraphError{Reason: "pipeline has no entry steps"}
	}

	ids := sortedStepIDs(p)
	for _, id := range ids {
		if err := validateStep(id, p.Steps[id]); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(p.CurrentSteps))
	for _, id := range p.CurrentSteps {
		if _, ok := p.Steps[id]; !ok {
			return &GraphError{StepID: id, Reason: "current step is not defined in steps"}
		}
		if seen[id] {
			return &GraphError{StepID: id, Reason: "current step listed twice"}
		}
		seen[id] = true
	}

	for _, id := range ids {
		for _, next := range p.Steps[id].NextSteps {
			if _, ok := p.Steps[next]; !ok {
				return &GraphError{StepID: id, Reason: fmt.Sprintf("next step %s is not defined in steps", next)}
			}
		}
	}

	if cycle := findCycle(p, ids); cycle != nil {
		return &GraphError{StepID: cycle[0], Reason: "cycle detected: " + strings.Join(cycle, " -> ")}
	}
	return nil
}

func validateStep(key string, step *Step) error {
	if step == nil {
		return &GraphError{StepID: key, Reason: "step is null"}
	}
	if step.ID != key {
		return &GraphError{StepID: key, Reason: fmt.Sprintf("step keyed as %s has id %q", key, step.ID)}
	}
	switch step.Status {
	case StatusPending, StatusActive, StatusCompleted:
	default:
		return &GraphError{StepID: key, Reason: fmt.Sprintf("unknown step status %q", step.Status)}
	}
	if step.Action == nil {
		return &GraphError{StepID: key, Reason: "action is required"}
	}
	if isPointer(step.Action) {
		return &GraphError{StepID: key, Reason: fmt.Sprintf("action must be a value variant, got %T", step.Action)}
	}
	if err := validate.Struct(step.Action); err != nil {
		return &GraphError{StepID: key, Reason: fmt.Sprintf("invalid %s action: %v", step.Action.Kind(), err)}
	}
	for i, c := range step.Conditions {
		if c.Type == nil {
			return &GraphError{StepID: key, Reason: fmt.Sprintf("condition %d has no type", i)}
		}
		if isPointer(c.Type) {
			return &GraphError{StepID: key, Reason: fmt.Sprintf("condition %d must be a value variant, got %T", i, c.Type)}
		}
		if err := validate.Struct(c.Type); err != nil {
			return &GraphError{StepID: key, Reason: fmt.Sprintf("invalid %s condition %d: %v", c.Type.Kind(), i, err)}
		}
	}
	return nil
}

// isPointer reports whether a variant was supplied by pointer. Only value
// variants are handled downstream.
func isPointer(v any) bool {
	return reflect.ValueOf(v).Kind() == reflect.Pointer
}

// findCycle returns the ids along a cycle, or nil when the graph is acyclic.
func findCycle(p *Pipeline, ids []string) []string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(ids))
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = grey
		path = append(path, id)
		for _, next := range p.Steps[id].NextSteps {
			switch color[next] {
			case grey:
				for i, onPath := range path {
					if onPath == next {
						return append(append([]string(nil), path[i:]...), next)
					}
				}
			case white:
				if c := visit(next); c != nil {
					return c
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for _, id := range ids {
		if color[id] == white {
			if c := visit(id); c != nil {
				return c
			}
		}
	}
	return nil
}

func sortedStepIDs(p *Pipeline) []string {
	ids := make([]string, 0, len(p.Steps))
	for id := range p.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
