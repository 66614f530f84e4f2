// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wraps OpenTelemetry span instrumentation around
// LLM calls, executor waves, and rollback, adapted from
// cmd/aleutian/internal/diagnostics's StartSpan/finish idiom.
//
// # Description
//
// Init installs a process-wide TracerProvider. Without a configured
// OTLP endpoint this still records spans (so span events and
// attributes are exercised by tests and local debugging) but does not
// export them, matching the teacher's NoOp/FOSS tier; an OTLP exporter
// is not wired because no OTLP exporter module is part of this
// module's dependency set.
package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// serviceTracerName is the instrumentation scope name registered
// spans are grouped under.
const serviceTracerName = "zenus"

var provider *sdktrace.TracerProvider

// Init installs a process-wide TracerProvider tagged with
// serviceName. Safe to call more than once; the last call wins.
func Init(serviceName string) error {
	if serviceName == "" {
		serviceName = "zenus"
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("deployment.environment", environment()),
		),
	)
	if err != nil {
		return err
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return nil
}

// Shutdown flushes and releases the installed TracerProvider. A no-op
// if Init was never called.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

func environment() string {
	if env := os.Getenv("ZENUS_ENV"); env != "" {
		return env
	}
	return "development"
}

// StartSpan opens a span named name with attrs attached, returning the
// child context and a finish function. Call finish with the
// operation's error (nil on success) when the operation completes.
//
// # Example
//
//	ctx, finish := telemetry.StartSpan(ctx, "llm.translate", map[string]string{"provider": name})
//	defer func() { finish(err) }()
func StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error)) {
	otelAttrs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		otelAttrs = append(otelAttrs, attribute.String(k, v))
	}

	ctx, span := otel.Tracer(serviceTracerName).Start(ctx, name,
		trace.WithAttributes(otelAttrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// AddEvent attaches a named event with attrs to the span active in
// ctx, a no-op if ctx carries no span. Used for point-in-time
// occurrences within a longer span, such as a circuit breaker state
// transition observed mid-wave.
func AddEvent(ctx context.Context, name string, attrs map[string]string) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	otelAttrs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		otelAttrs = append(otelAttrs, attribute.String(k, v))
	}
	span.AddEvent(name, trace.WithAttributes(otelAttrs...))
}
