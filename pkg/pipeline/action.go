// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pipeline

import (
	"encoding/json"
	"fmt"
)

// ActionKind names an action variant.
type ActionKind string

const (
	KindNotification ActionKind = "Notification"
	KindSwap         ActionKind = "Swap"
)

// Action is the closed set of side effects a step can fire.
type Action interface {
	Kind() ActionKind
	isAction()
}

// Notification sends a message to the pipeline owner.
type Notification struct {
	Message string `json:"message" validate:"required,max=4096"`
}

func (Notification) Kind() ActionKind { return KindNotification }
func (Notification) isAction()        {}

// Swap is an on-chain order carried out by an external executor.
// Amount is kept as a decimal string in base units to avoid float rounding.
type Swap struct {
	InputToken  string `json:"input_token" validate:"required"`
	OutputToken string `json:"output_token" validate:"required,nefield=InputToken"`
	Amount      string `json:"amount" validate:"required,base_units"`
	SlippageBps int    `json:"slippage_bps" validate:"gte=0,lte=10000"`
}

func (Swap) Kind() ActionKind { return KindSwap }
func (Swap) isAction()        {}

// LoadBearing reports whether a failed dispatch of this action fails the pipeline.
// Swaps are load-bearing: later steps usually assume the order went through.
func LoadBearing(a Action) bool {
	switch a.(type) {
	case Swap:
		return true
	case Notification:
		return false
	default:
		return false
	}
}

// MarshalJSON encodes the step with its externally tagged action.
func (s Step) MarshalJSON() ([]byte, error) {
	if s.Action == nil {
		return nil, fmt.Errorf("step %s has no action", s.ID)
	}
	raw, err := encodeTagged(string(s.Action.Kind()), s.Action)
	if err != nil {
		return nil, err
	}
	type alias Step
	return json.Marshal(struct {
		alias
		Action json.RawMessage `json:"action"`
	}{alias(s), raw})
}

// UnmarshalJSON decodes a step, rejecting unknown action kinds.
func (s *Step) UnmarshalJSON(data []byte) error {
	type alias Step
	aux := struct {
		*alias
		Action json.RawMessage `json:"action"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a, err := decodeAction(aux.Action)
	if err != nil {
		return fmt.Errorf("action: %w", err)
	}
	s.Action = a
	if s.Status == "" {
		s.Status = StatusPending
	}
	return nil
}

func decodeAction(raw json.RawMessage) (Action, error) {
	kind, payload, err := decodeTagged(raw)
	if err != nil {
		return nil, err
	}
	switch ActionKind(kind) {
	case KindNotification:
		var v Notification
		if err := decodeStrict(payload, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return v, nil
	case KindSwap:
		var v Swap
		if err := decodeStrict(payload, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown action kind %q", kind)
	}
}
