// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest is the client-supplied part of a pipeline.
// Identity, status and timestamps are always assigned server side.
type CreateRequest struct {
	UserID       string           `json:"user_id" yaml:"user_id" binding:"required"`
	CurrentSteps []string         `json:"current_steps" yaml:"current_steps" binding:"required,min=1"`
	Steps        map[string]*Step `json:"steps" yaml:"steps" binding:"required,min=1"`
}

// ToPipeline builds a pending pipeline with a freshly generated id. Step
// status, dispatch records and condition latches in the request are dropped.
func (r *CreateRequest) ToPipeline(now time.Time) *Pipeline {
	p := New(uuid.NewString(), r.UserID, now)
	p.CurrentSteps = append([]string(nil), r.CurrentSteps...)
	for id, step := range r.Steps {
		p.Steps[id] = step.Clone()
	}
	p.ResetProgress()
	return p
}
