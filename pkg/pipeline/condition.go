// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pipeline

import (
	"encoding/json"
	"fmt"
	"time"
)

// ConditionKind names a condition variant.
type ConditionKind string

const (
	KindPriceAbove ConditionKind = "PriceAbove"
	KindPriceBelow ConditionKind = "PriceBelow"
)

// ConditionType is the closed set of guard predicates.
// Implementations live in this package only.
type ConditionType interface {
	Kind() ConditionKind
	AssetID() string
	isConditionType()
}

// PriceAbove triggers when the asset price is strictly greater than Threshold.
type PriceAbove struct {
	Asset     string  `json:"asset" validate:"required"`
	Threshold float64 `json:"threshold"`
}

func (PriceAbove) Kind() ConditionKind { return KindPriceAbove }
func (c PriceAbove) AssetID() string   { return c.Asset }
func (PriceAbove) isConditionType()    {}

// PriceBelow triggers when the asset price is strictly lower than Threshold.
type PriceBelow struct {
	Asset     string  `json:"asset" validate:"required"`
	Threshold float64 `json:"threshold"`
}

func (PriceBelow) Kind() ConditionKind { return KindPriceBelow }
func (c PriceBelow) AssetID() string   { return c.Asset }
func (PriceBelow) isConditionType()    {}

// Condition is a single latched guard on a step.
type Condition struct {
	Type          ConditionType `json:"-"`
	Triggered     bool          `json:"triggered"`
	LastEvaluated *time.Time    `json:"last_evaluated"`
}

// NewCondition wraps a condition type in an untriggered guard.
func NewCondition(t ConditionType) Condition {
	return Condition{Type: t}
}

func (c Condition) clone() Condition {
	out := c
	if c.LastEvaluated != nil {
		t := *c.LastEvaluated
		out.LastEvaluated = &t
	}
	return out
}

// MarshalJSON encodes the condition with its externally tagged type.
func (c Condition) MarshalJSON() ([]byte, error) {
	if c.Type == nil {
		return nil, fmt.Errorf("condition has no type")
	}
	raw, err := encodeTagged(string(c.Type.Kind()), c.Type)
	if err != nil {
		return nil, err
	}
	type alias Condition
	return json.Marshal(struct {
		ConditionType json.RawMessage `json:"condition_type"`
		alias
	}{raw, alias(c)})
}

// UnmarshalJSON decodes a condition, rejecting unknown condition kinds.
func (c *Condition) UnmarshalJSON(data []byte) error {
	type alias Condition
	aux := struct {
		ConditionType json.RawMessage `json:"condition_type"`
		*alias
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := decodeConditionType(aux.ConditionType)
	if err != nil {
		return fmt.Errorf("condition_type: %w", err)
	}
	c.Type = t
	return nil
}

func decodeConditionType(raw json.RawMessage) (ConditionType, error) {
	kind, payload, err := decodeTagged(raw)
	if err != nil {
		return nil, err
	}
	switch ConditionKind(kind) {
	case KindPriceAbove:
		var v PriceAbove
		if err := decodeStrict(payload, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return v, nil
	case KindPriceBelow:
		var v PriceBelow
		if err := decodeStrict(payload, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown condition kind %q", kind)
	}
}
