package goAccount

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricSessionKeyAdded)

	if got := m.Value(MetricSessionKeyAdded); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricGuardianAdded)
	m.Inc(MetricGuardianAdded)
	m.Inc(MetricGuardianAdded)

	if got := m.Value(MetricGuardianAdded); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricValidationSessionKey)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricValidationSessionKey); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		20 * time.Microsecond,
		100 * time.Microsecond,
		200 * time.Microsecond,
		500 * time.Microsecond,
		999 * time.Microsecond,
		2 * time.Millisecond,
		10 * time.Millisecond,
		time.Second,
	}

	for _, d := range observations {
		m.Observe(MetricValidateLatency, d)
	}
	// ignored: no histogram behind counters
	m.Observe(MetricExecuteSuccess, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricValidateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Histograms[MetricExecuteSuccess]; ok {
		t.Fatalf("expected no histogram for counter metric")
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricValidationOwner)
	m.Inc(MetricValidationFailure)
	m.Inc(MetricValidationFailure)
	m.Observe(MetricValidateLatency, 30*time.Microsecond)

	snap := m.Snapshot()

	if snap.Counters[MetricValidationOwner] != 1 {
		t.Fatalf("expected MetricValidationOwner=1 got %d", snap.Counters[MetricValidationOwner])
	}
	if snap.Counters[MetricValidationFailure] != 2 {
		t.Fatalf("expected MetricValidationFailure=2 got %d", snap.Counters[MetricValidationFailure])
	}
	if len(snap.Histograms[MetricValidateLatency]) != 8 {
		t.Fatalf("expected histogram length 8")
	}
	if snap.Histograms[MetricValidateLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricValidateLatency][0])
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricOwnerRecovered)
	m.Observe(MetricValidateLatency, time.Millisecond)
	if m.Value(MetricOwnerRecovered) != 0 || m.Enabled() || m.LatencyEnabled() {
		t.Fatalf("nil metrics must be inert")
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot")
	}
}

func TestBuilderMetricsToggles(t *testing.T) {
	env := newTestEnv(t, backends()[0], func(b *Builder) {
		b.WithLatencyHistograms(true)
	})
	if env.account.metrics.Enabled() || env.account.metrics.LatencyEnabled() {
		t.Fatalf("latency histograms must stay off while metrics are disabled")
	}

	env = newTestEnv(t, backends()[0], func(b *Builder) {
		b.WithMetricsEnabled(true).WithLatencyHistograms(true)
	})
	if !env.account.metrics.Enabled() || !env.account.metrics.LatencyEnabled() {
		t.Fatalf("expected counters and latency histograms enabled")
	}
}

func TestMetricsHistogramIDIsNotACounter(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricValidateLatency)
	m.Observe(MetricValidateLatency, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Counters[MetricValidateLatency]; ok {
		t.Fatalf("histogram id must not appear among counters")
	}
	if _, ok := snap.Histograms[MetricValidateLatency]; ok {
		t.Fatalf("histogram must be absent when latency is disabled")
	}
}

func TestBucketIndexBounds(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{50 * time.Microsecond, 0},
		{51 * time.Microsecond, 1},
		{time.Millisecond, 4},
		{10 * time.Millisecond, 6},
		{10*time.Millisecond + 1, 7},
	}
	for _, tc := range cases {
		if got := bucketIndex(tc.d); got != tc.want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", tc.d, got, tc.want)
		}
	}
}
