package goAccount

import (
	"sync/atomic"
	"time"
)

// MetricID indexes the fixed counter table of Metrics.
type MetricID uint16

const (
	MetricSessionKeyAdded MetricID = iota
	MetricSessionKeyRevoked
	MetricGuardianAdded
	MetricGuardianRemoved
	MetricOwnerRecovered
	// MetricValidationOwner counts signatures accepted as the owner.
	MetricValidationOwner
	// MetricValidationSessionKey counts signatures accepted as a live session key.
	MetricValidationSessionKey
	// MetricValidationFailure counts signatures that matched neither registry.
	MetricValidationFailure
	// MetricUnauthorized counts calls rejected for a missing role.
	MetricUnauthorized
	MetricInvalidArgument
	MetricPrefundPaid
	MetricPrefundFailed
	MetricExecuteSuccess
	MetricExecuteFailure
	MetricGrantIssued
	MetricGrantRejected
	// MetricValidateLatency is the only histogram-backed metric.
	MetricValidateLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of the first seven histogram
// buckets. Signature recovery runs in tens of microseconds; store round trips
// push validation into the millisecond buckets.
var latencyBounds = [histBucketCount - 1]time.Duration{
	50 * time.Microsecond,
	100 * time.Microsecond,
	250 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	2500 * time.Microsecond,
	10 * time.Millisecond,
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free counter table plus the validation latency
// histogram. A nil or disabled Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       [histBucketCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics table configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded. A nil Metrics is disabled.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id. The histogram id is not a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricValidateLatency {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d for id. Only MetricValidateLatency carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricValidateLatency {
		return
	}
	atomic.AddUint64(&m.latency[bucketIndex(d)].value, 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. The histogram is included only when latency
// histograms are enabled. Counters are read one at a time, so a snapshot
// taken under load is not a consistent cut.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < MetricValidateLatency; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.latency[i].value)
		}
		s.Histograms[MetricValidateLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
