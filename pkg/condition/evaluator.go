// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package condition evaluates step guards against price events.
package condition

import (
	"time"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// Verdict is the outcome of evaluating one condition against one event.
type Verdict int

const (
	Unchanged Verdict = iota
	Triggered
)

func (v Verdict) String() string {
	switch v {
	case Triggered:
		return "triggered"
	default:
		return "unchanged"
	}
}

// Evaluate applies ev to c.
// Latched conditions and events for other assets leave c untouched.
// A matching event stamps LastEvaluated and latches Triggered when the predicate holds.
func Evaluate(c *pipeline.Condition, ev pipeline.PriceEvent, now time.Time) Verdict {
	if c == nil || c.Type == nil || c.Triggered {
		return Unchanged
	}
	if c.Type.AssetID() != ev.Asset {
		return Unchanged
	}

	evaluated := now
	c.LastEvaluated = &evaluated

	if !holds(c.Type, ev.Price) {
		return Unchanged
	}
	c.Triggered = true
	return Triggered
}

// References reports whether c guards on asset.
func References(c pipeline.Condition, asset string) bool {
	return c.Type != nil && c.Type.AssetID() == asset
}

// StepReferences reports whether any condition of step guards on asset.
func StepReferences(step *pipeline.Step, asset string) bool {
	for _, c := range step.Conditions {
		if References(c, asset) {
			return true
		}
	}
	return false
}

// AllTriggered reports whether every condition of step has latched.
// A step without conditions is trivially satisfied.
func AllTriggered(step *pipeline.Step) bool {
	for _, c := range step.Conditions {
		if !c.Triggered {
			return false
		}
	}
	return true
}

func holds(t pipeline.ConditionType, price float64) bool {
	switch ct := t.(type) {
	case pipeline.PriceAbove:
		return price > ct.Threshold
	case pipeline.PriceBelow:
		return price < ct.Threshold
	default:
		return false
	}
}
