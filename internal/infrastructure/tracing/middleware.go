package tracing

import (
	"context"

	"github.com/gin-gonic/gin"
)

// HTTPMiddleware creates Gin middleware that traces every request. Incoming
// trace headers from the desktop shell are honored so its logs and ours share
// one trace; the ids are echoed back on the response for the same reason.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if v := c.GetHeader(TraceHeader); v != "" {
			ctx = context.WithValue(ctx, traceIDKey, TraceID(v))
		}
		if v := c.GetHeader(SpanHeader); v != "" {
			ctx = context.WithValue(ctx, spanIDKey, SpanID(v))
		}

		span, ctx := tracer.StartSpan(ctx, c.FullPath())
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.path", c.Request.URL.Path)

		c.Request = c.Request.WithContext(ctx)

		c.Header(TraceHeader, string(span.TraceID))
		c.Header(SpanHeader, string(span.SpanID))

		c.Next()

		span.SetStatus(c.Writer.Status())
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		span.Finish()
		tracer.Submit(span)
	}
}
