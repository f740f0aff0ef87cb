package folding

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Logger wraps zap.Logger with folding-specific structured logging.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("folding")}
}

// Zap returns the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.logger == nil {
		return zap.NewNop()
	}
	return l.logger
}

// RegionsComputed logs a finished provider computation.
func (l *Logger) RegionsComputed(ctx context.Context, uri string, version int, provider string, regions int, duration time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, uri, version)
	fields = append(fields,
		zap.String("provider", provider),
		zap.Int("regions", regions),
		zap.Duration("duration", duration),
	)
	l.logger.Debug("regions computed", fields...)
}

// ComputeFailed logs a provider failure. The failure is absorbed by the
// caller and treated as an empty result.
func (l *Logger) ComputeFailed(ctx context.Context, uri string, version int, provider string, err error) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, uri, version)
	fields = append(fields, zap.String("provider", provider), zap.Error(err))
	l.logger.Error("unexpected error computing folding ranges", fields...)
}

// StaleResultDiscarded logs a computation whose document changed meanwhile.
func (l *Logger) StaleResultDiscarded(ctx context.Context, uri string, startedVersion, currentVersion int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, uri, startedVersion)
	fields = append(fields, zap.Int("current_version", currentVersion))
	l.logger.Debug("stale folding result discarded", fields...)
}

// RegionsUpdated logs a replacement of a model's region table.
func (l *Logger) RegionsUpdated(ctx context.Context, uri string, version, regions int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, uri, version)
	fields = append(fields, zap.Int("regions", regions))
	l.logger.Debug("regions updated", fields...)
}

// CollapseStateChanged logs a batch of collapse toggles.
func (l *Logger) CollapseStateChanged(ctx context.Context, uri string, toggled int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("uri", uri),
		zap.Int("toggled", toggled),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Debug("collapse state changed", fields...)
}

// MementoApplied logs a view-state restore.
func (l *Logger) MementoApplied(ctx context.Context, uri string, saved, restored int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("uri", uri),
		zap.Int("saved", saved),
		zap.Int("restored", restored),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Info("view state restored", fields...)
}

// LimitExceeded logs a truncated computation.
func (l *Logger) LimitExceeded(ctx context.Context, computed, limited int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.Int("computed", computed),
		zap.Int("limit", limited),
	}
	fields = append(fields, l.traceFields(ctx)...)
	l.logger.Warn("folding ranges limit exceeded, only the first ranges are shown", fields...)
}

// Error logs an error with context.
func (l *Logger) Error(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if l == nil || l.logger == nil {
		return
	}
	allFields := l.traceFields(ctx)
	allFields = append(allFields, zap.Error(err))
	allFields = append(allFields, fields...)
	l.logger.Error(msg, allFields...)
}

// Debug logs a debug message with context.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	if l == nil || l.logger == nil {
		return
	}
	allFields := l.traceFields(ctx)
	allFields = append(allFields, fields...)
	l.logger.Debug(msg, allFields...)
}

// baseFields returns common fields for document events.
func (l *Logger) baseFields(ctx context.Context, uri string, version int) []zap.Field {
	fields := []zap.Field{
		zap.String("uri", uri),
		zap.Int("version", version),
	}
	return append(fields, l.traceFields(ctx)...)
}

// traceFields extracts trace context from the context.
func (l *Logger) traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	sc := span.SpanContext()
	fields := []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
	if sc.IsSampled() {
		fields = append(fields, zap.Bool("trace_sampled", true))
	}
	return fields
}
