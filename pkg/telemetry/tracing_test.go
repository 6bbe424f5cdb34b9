// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartSpan(t *testing.T) {
	recorder := useRecorder(t)

	ctx, span := StartSpan(context.Background(), "stress.Run",
		trace.WithAttributes(attribute.Int("writers", 4)),
	)
	assert.True(t, span.SpanContext().IsValid())
	assert.Equal(t, span.SpanContext().SpanID(), trace.SpanFromContext(ctx).SpanContext().SpanID())
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "stress.Run", ended[0].Name())
	assert.Equal(t, TracerName, ended[0].InstrumentationScope().Name)
}

func TestRecordError(t *testing.T) {
	recorder := useRecorder(t)

	_, span := StartSpan(context.Background(), "record")
	RecordError(span, errors.New("boom"), attribute.String("phase", "fold"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}

func TestRecordError_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError(nil, errors.New("x"))
		_, span := StartSpan(context.Background(), "noop")
		RecordError(span, nil)
		span.End()
	})
}

func TestLoggerWithTrace(t *testing.T) {
	t.Run("no span", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		LoggerWithTrace(context.Background(), logger).Info("msg")
		assert.NotContains(t, buf.String(), "trace_id")
	})

	t.Run("nil context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		var ctx context.Context
		LoggerWithTrace(ctx, logger).Info("msg")
		assert.Contains(t, buf.String(), "msg")
	})

	t.Run("nil logger", func(t *testing.T) {
		assert.NotNil(t, LoggerWithTrace(context.Background(), nil))
	})

	t.Run("with span", func(t *testing.T) {
		traceID := trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
		spanID := trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
		ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		}))

		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		LoggerWithTrace(ctx, logger).Info("msg")

		assert.Contains(t, buf.String(), traceID.String())
		assert.Contains(t, buf.String(), spanID.String())
	})
}
