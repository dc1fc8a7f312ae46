package tracing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agentsmonitor/backend/internal/shared/id"
)

// Headers carrying trace context between the desktop shell and the backend.
const (
	TraceHeader = "X-Trace-ID"
	SpanHeader  = "X-Span-ID"
)

// TraceID identifies a whole request flow.
type TraceID string

// SpanID identifies a single operation within a trace.
type SpanID string

// Context keys for trace propagation
type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// Span is one traced operation. The middleware creates it, annotates it with
// request facts, and submits it once the handler chain returns.
type Span struct {
	TraceID   TraceID
	SpanID    SpanID
	ParentID  SpanID
	Name      string
	Service   string
	StartTime time.Time
	Duration  time.Duration
	Tags      map[string]string
	Status    int
	Err       error
}

// Finish stamps the span's duration.
func (s *Span) Finish() {
	s.Duration = time.Since(s.StartTime)
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetStatus records the HTTP status code
func (s *Span) SetStatus(code int) {
	s.Status = code
}

// SetError records a handler error. The status is forced to 500 unless the
// handler already set one.
func (s *Span) SetError(err error) {
	s.Err = err
	if s.Status == 0 {
		s.Status = 500
	}
}

// Tracer turns finished spans into structured log lines. Collection is
// buffered and asynchronous so request handling never blocks on span output.
type Tracer struct {
	service string
	logger  *zap.Logger
	spans   chan *Span
}

// New creates a tracer for the named service
func New(service string, logger *zap.Logger) *Tracer {
	t := &Tracer{
		service: service,
		logger:  logger,
		spans:   make(chan *Span, 1000),
	}
	go t.collect()
	return t
}

// StartSpan opens a span under the trace carried by ctx, minting a fresh
// trace ID when the caller did not supply one. The returned context names the
// new span as parent for any child spans started beneath it.
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID, _ := ctx.Value(traceIDKey).(TraceID)
	if traceID == "" {
		traceID = TraceID(id.NewTraceID())
	}

	parentID, _ := ctx.Value(spanIDKey).(SpanID)

	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(id.NewSpanID()),
		ParentID:  parentID,
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}

	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, spanIDKey, span.SpanID)

	return span, newCtx
}

// Submit queues a finished span for logging. Full buffer drops the span
// rather than stalling the caller.
func (t *Tracer) Submit(span *Span) {
	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("span_id", string(span.SpanID)),
		)
	}
}

// collect drains the span channel for the life of the process.
func (t *Tracer) collect() {
	for span := range t.spans {
		t.log(span)
	}
}

// log emits one structured line per span, error level when the handler failed.
func (t *Tracer) log(span *Span) {
	fields := []zap.Field{
		zap.String("trace_id", string(span.TraceID)),
		zap.String("span_id", string(span.SpanID)),
		zap.String("operation", span.Name),
		zap.String("service", span.Service),
		zap.Duration("duration", span.Duration),
		zap.Int("status", span.Status),
	}

	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(span.ParentID)))
	}
	for key, value := range span.Tags {
		fields = append(fields, zap.String(key, value))
	}

	if span.Err != nil {
		fields = append(fields, zap.Error(span.Err))
		t.logger.Error("span completed with error", fields...)
	} else {
		t.logger.Debug("span completed", fields...)
	}
}
