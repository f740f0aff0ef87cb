package folding

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// InstrumentationName is the name used for OTEL instrumentation.
	InstrumentationName = "github.com/fyrsmithlabs/foldkit/internal/folding"
)

// Metrics provides OpenTelemetry metrics for the folding engine.
type Metrics struct {
	// Counters
	computeTotal       metric.Int64Counter
	computeFailedTotal metric.Int64Counter
	staleDiscardTotal  metric.Int64Counter
	limitExceededTotal metric.Int64Counter
	collapseToggles    metric.Int64Counter

	// Histograms
	computeDuration metric.Float64Histogram
	regionCount     metric.Int64Histogram

	// initialized tracks if metrics were successfully initialized
	initialized bool
}

// NewMetrics creates a new Metrics instance with the provided meter.
// If meter is nil, uses the global meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.computeTotal, err = meter.Int64Counter(
		"folding.compute.total",
		metric.WithDescription("Total number of folding range computations"),
		metric.WithUnit("{computation}"),
	)
	if err != nil {
		return nil, err
	}

	m.computeFailedTotal, err = meter.Int64Counter(
		"folding.compute.failed.total",
		metric.WithDescription("Computations whose provider failed"),
		metric.WithUnit("{computation}"),
	)
	if err != nil {
		return nil, err
	}

	m.staleDiscardTotal, err = meter.Int64Counter(
		"folding.compute.stale.total",
		metric.WithDescription("Results discarded because the document changed"),
		metric.WithUnit("{computation}"),
	)
	if err != nil {
		return nil, err
	}

	m.limitExceededTotal, err = meter.Int64Counter(
		"folding.limit.exceeded.total",
		metric.WithDescription("Computations truncated to the region limit"),
		metric.WithUnit("{computation}"),
	)
	if err != nil {
		return nil, err
	}

	m.collapseToggles, err = meter.Int64Counter(
		"folding.collapse.toggles.total",
		metric.WithDescription("Regions whose collapse state was toggled"),
		metric.WithUnit("{region}"),
	)
	if err != nil {
		return nil, err
	}

	m.computeDuration, err = meter.Float64Histogram(
		"folding.compute.duration.seconds",
		metric.WithDescription("Duration of folding range computations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, err
	}

	m.regionCount, err = meter.Int64Histogram(
		"folding.regions.count",
		metric.WithDescription("Regions produced per computation"),
		metric.WithUnit("{region}"),
		metric.WithExplicitBucketBoundaries(0, 10, 50, 100, 500, 1000, 5000, 10000),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordCompute records a finished computation.
func (m *Metrics) RecordCompute(ctx context.Context, provider string, duration time.Duration, regions int, err error) {
	if m == nil || !m.initialized {
		return
	}
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	m.computeTotal.Add(ctx, 1, attrs)
	m.computeDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.computeFailedTotal.Add(ctx, 1, attrs)
		return
	}
	m.regionCount.Record(ctx, int64(regions), attrs)
}

// RecordStaleDiscard records a discarded stale result.
func (m *Metrics) RecordStaleDiscard(ctx context.Context, provider string) {
	if m == nil || !m.initialized {
		return
	}
	m.staleDiscardTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordLimitExceeded records a truncated computation.
func (m *Metrics) RecordLimitExceeded(ctx context.Context, computed, limited int) {
	if m == nil || !m.initialized {
		return
	}
	m.limitExceededTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int("limit", limited)))
}

// RecordCollapseToggles records toggled regions.
func (m *Metrics) RecordCollapseToggles(ctx context.Context, command string, toggled int) {
	if m == nil || !m.initialized || toggled == 0 {
		return
	}
	m.collapseToggles.Add(ctx, int64(toggled), metric.WithAttributes(attribute.String("command", command)))
}

// Tracer returns a tracer for the folding package.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// SpanAttributes returns common span attributes for a document.
func SpanAttributes(uri string, version int, languageID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("folding.uri", uri),
		attribute.Int("folding.version", version),
		attribute.String("folding.language", languageID),
	}
}

// StartSpan starts a new span with document context.
func StartSpan(ctx context.Context, name string, text TextModel, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	attrs := SpanAttributes(text.URI(), text.VersionID(), text.LanguageID())
	allOpts := append([]trace.SpanStartOption{trace.WithAttributes(attrs...)}, opts...)
	return Tracer().Start(ctx, name, allOpts...)
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err, trace.WithAttributes(attrs...))
	}
}

// SetSpanStatus sets the status on the current span.
func SetSpanStatus(ctx context.Context, code codes.Code, description string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetStatus(code, description)
	}
}
