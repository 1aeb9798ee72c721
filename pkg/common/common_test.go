// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestScope_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	scope := NewScope(context.Background(), "parent")
	scope.SetAttributes("pipeline.id", "p-1")
	child := scope.NewChildScope("child")
	child.TraceError(errors.New("boom"))
	child.Finish()
	scope.TraceEvent("retrying")
	scope.Finish()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, expected 2", len(spans))
	}
	childSpan, parentSpan := spans[0], spans[1]
	if childSpan.Parent().SpanID() != parentSpan.SpanContext().SpanID() {
		t.Error("child span is not parented to the scope span")
	}
	if childSpan.Status().Code != codes.Error {
		t.Errorf("child status = %v, expected Error", childSpan.Status().Code)
	}
	if len(parentSpan.Events()) != 1 || parentSpan.Events()[0].Name != "retrying" {
		t.Errorf("parent events = %v", parentSpan.Events())
	}
	if scope.TraceID != parentSpan.SpanContext().TraceID().String() {
		t.Errorf("scope trace id %s does not match span", scope.TraceID)
	}
	if scope.Log.Data[traceIDLogField] != scope.TraceID {
		t.Errorf("logger not tagged with trace id: %v", scope.Log.Data)
	}
}

func TestNewTracerProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  TracerConfig
	}{
		{"no exporter", TracerConfig{ServiceName: "listen-engine", Environment: "test"}},
		{"sampled", TracerConfig{ServiceName: "listen-engine", SampleRatio: 0.5}},
		{"zipkin", TracerConfig{ServiceName: "listen-engine", ZipkinURL: "http://127.0.0.1:9411/api/v2/spans"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, err := NewTracerProvider(tt.cfg)
			if err != nil {
				t.Fatalf("NewTracerProvider() error = %v", err)
			}
			if err := tp.Shutdown(context.Background()); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestConfigureLogging(t *testing.T) {
	prevLevel, prevFormatter := logrus.GetLevel(), logrus.StandardLogger().Formatter
	t.Cleanup(func() {
		logrus.SetLevel(prevLevel)
		logrus.SetFormatter(prevFormatter)
	})

	if err := ConfigureLogging("debug", "text"); err != nil {
		t.Fatalf("ConfigureLogging() error = %v", err)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, expected debug", logrus.GetLevel())
	}
	if _, ok := logrus.StandardLogger().Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("formatter = %T, expected text", logrus.StandardLogger().Formatter)
	}

	if err := ConfigureLogging("loud", "json"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
