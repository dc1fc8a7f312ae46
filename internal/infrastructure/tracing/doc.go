/*
Package tracing provides lightweight request tracing for debugging production issues.

# Overview

This package implements minimal request tracing for the backend. It follows
OpenTelemetry concepts but with a small implementation tailored to a single
service fronting terminal sessions and webhook consumers: spans become
structured log lines rather than exported telemetry.

# Features

- Trace context propagation via HTTP headers
- Parent-child span relationships across the shell and the backend
- Automatic trace ID generation (ULID-based)
- HTTP middleware for automatic instrumentation
- Low overhead with buffered, asynchronous span collection

# Usage

	// Create tracer
	tracer := tracing.New("backend", logger)

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	span.SetTag("key", "value")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

# Trace Format

Traces use standard HTTP headers for propagation:
- X-Trace-ID: Unique identifier for entire request flow
- X-Span-ID: Identifier for current operation

The desktop shell sends these on its requests and receives them on responses,
so a session spanning UI and backend correlates under one trace ID.

# Performance

The tracing system is designed for minimal overhead:
- Buffered span collection (1000 spans)
- Async span processing
- Spans dropped, never blocking, when the buffer is full
*/
package tracing
