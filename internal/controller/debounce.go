package controller

import (
	"sync"
	"time"
)

// debounceWindow is the number of recent compute durations averaged per
// provider.
const debounceWindow = 6

// slidingAverage is the mean of the last debounceWindow samples.
type slidingAverage struct {
	values [debounceWindow]time.Duration
	n      int
	next   int
	sum    time.Duration
}

func (a *slidingAverage) update(v time.Duration) time.Duration {
	if a.n == debounceWindow {
		a.sum -= a.values[a.next]
	} else {
		a.n++
	}
	a.values[a.next] = v
	a.sum += v
	a.next = (a.next + 1) % debounceWindow
	return a.value()
}

func (a *slidingAverage) value() time.Duration {
	if a.n == 0 {
		return 0
	}
	return a.sum / time.Duration(a.n)
}

// Debouncer tunes the recompute delay per provider from recent compute
// latencies: slow providers are asked less often.
type Debouncer struct {
	mu       sync.Mutex
	minDelay time.Duration
	maxDelay time.Duration
	averages map[string]*slidingAverage
}

// NewDebouncer creates a debouncer clamping delays to [minDelay, maxDelay].
func NewDebouncer(minDelay, maxDelay time.Duration) *Debouncer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Debouncer{minDelay: minDelay, maxDelay: maxDelay, averages: make(map[string]*slidingAverage)}
}

// Delay returns the delay to wait before computing with providerID.
func (d *Debouncer) Delay(providerID string) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if avg, ok := d.averages[providerID]; ok {
		return d.clamp(avg.value())
	}
	return d.minDelay
}

// Update records a compute duration and returns the new delay.
func (d *Debouncer) Update(providerID string, took time.Duration) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	avg, ok := d.averages[providerID]
	if !ok {
		avg = &slidingAverage{}
		d.averages[providerID] = avg
	}
	return d.clamp(avg.update(took))
}

func (d *Debouncer) clamp(v time.Duration) time.Duration {
	switch {
	case v < d.minDelay:
		return d.minDelay
	case v > d.maxDelay:
		return d.maxDelay
	default:
		return v
	}
}
