package folding

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxRegions is the region limit used when none is configured.
const DefaultMaxRegions = 5000

// RangesLimitReporter caps the number of regions a provider may return and
// records whether the last computation was truncated.
type RangesLimitReporter struct {
	mu       sync.Mutex
	limit    int
	computed int
	limited  int
	changes  Emitter[LimitEvent]
	warn     rate.Sometimes
	logger   *Logger
	metrics  *Metrics
}

// LimitOption configures a RangesLimitReporter.
type LimitOption func(*RangesLimitReporter)

// WithLimitLogger sets the logger used for truncation warnings.
func WithLimitLogger(l *Logger) LimitOption {
	return func(r *RangesLimitReporter) {
		r.logger = l
	}
}

// WithLimitMetrics sets the metrics recorder.
func WithLimitMetrics(m *Metrics) LimitOption {
	return func(r *RangesLimitReporter) {
		r.metrics = m
	}
}

// NewRangesLimitReporter creates a reporter with the given limit. A
// non-positive limit falls back to DefaultMaxRegions and values above
// MaxFoldingRegions are clamped.
func NewRangesLimitReporter(limit int, opts ...LimitOption) *RangesLimitReporter {
	if limit <= 0 {
		limit = DefaultMaxRegions
	}
	if limit > MaxFoldingRegions {
		limit = MaxFoldingRegions
	}
	r := &RangesLimitReporter{
		limit: limit,
		warn:  rate.Sometimes{First: 1, Interval: time.Minute},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Limit returns the maximum number of regions.
func (r *RangesLimitReporter) Limit() int {
	return r.limit
}

// Update records that computed ranges were found and, when limited > 0, that
// the result was cut to limited. Subscribers are notified only when the
// numbers change.
func (r *RangesLimitReporter) Update(computed, limited int) {
	var event *LimitEvent
	func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if computed == r.computed && limited == r.limited {
			return
		}
		r.computed = computed
		r.limited = limited
		event = &LimitEvent{Computed: computed, Limited: limited}
	}()

	if limited > 0 {
		r.metrics.RecordLimitExceeded(context.Background(), computed, limited)
		r.warn.Do(func() {
			r.logger.LimitExceeded(context.Background(), computed, limited)
		})
	}
	if event != nil {
		r.changes.Emit(*event)
	}
}

// Computed returns the number of ranges found by the last computation.
func (r *RangesLimitReporter) Computed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.computed
}

// Limited returns the limit applied by the last computation, or 0.
func (r *RangesLimitReporter) Limited() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limited
}

// OnDidChange subscribes to limit changes.
func (r *RangesLimitReporter) OnDidChange(handler func(LimitEvent)) (unsubscribe func()) {
	return r.changes.Subscribe(handler)
}
