// internal/logging/context.go
package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if doc, ok := DocumentFromContext(ctx); ok {
		fields = append(fields,
			zap.String("document.uri", doc.URI),
			zap.Int("document.version", doc.Version),
		)
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	return fields
}

type documentCtxKey struct{}
type requestCtxKey struct{}
type loggerCtxKey struct{}

// Document identifies the document a log line is about.
type Document struct {
	URI     string
	Version int
}

// WithDocument adds the document URI and version to ctx.
func WithDocument(ctx context.Context, uri string, version int) context.Context {
	return context.WithValue(ctx, documentCtxKey{}, Document{URI: uri, Version: version})
}

// DocumentFromContext returns the document stored by WithDocument.
func DocumentFromContext(ctx context.Context) (Document, bool) {
	d, ok := ctx.Value(documentCtxKey{}).(Document)
	return d, ok
}

// WithRequestID adds a request ID to ctx. Empty IDs are ignored.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext extracts the request ID from ctx.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
