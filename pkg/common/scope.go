// Copyright (c) 2023 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	traceIDLogField = "traceID"
	tracerName      = "listen-engine"
)

// Scope ties a span to a logger tagged with its trace id.
type Scope struct {
	Ctx     context.Context
	TraceID string
	Log     *log.Entry
	span    oteltrace.Span
}

// NewScope starts a span under whatever span ctx already carries.
func NewScope(ctx context.Context, name string) *Scope {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, name)
	traceID := span.SpanContext().TraceID().String()

	return &Scope{
		Ctx:     spanCtx,
		TraceID: traceID,
		Log:     log.WithField(traceIDLogField, traceID),
		span:    span,
	}
}

// NewChildScope starts a nested span sharing the parent's logger.
func (s *Scope) NewChildScope(name string) *Scope {
	ctx, span := s.span.TracerProvider().Tracer(tracerName).Start(s.Ctx, name)
	return &Scope{Ctx: ctx, TraceID: s.TraceID, Log: s.Log, span: span}
}

// Finish ends the span.
func (s *Scope) Finish() {
	s.span.End()
}

// TraceEvent annotates the span with a point-in-time event.
func (s *Scope) TraceEvent(message string) {
	s.span.AddEvent(message)
}

// TraceError records err and marks the span failed.
func (s *Scope) TraceError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttributes sets a span attribute. Unsupported value types are logged and skipped.
func (s *Scope) SetAttributes(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.Log.Errorf("could not set span attribute %s of type %T", key, value)
	}
}
