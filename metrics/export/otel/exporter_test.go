package otel

import (
	"context"
	"sync"
	"testing"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/ethereum/go-ethereum/common"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	addr     common.Address
	snapshot goAccount.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) Address() common.Address { return f.addr }

func (f *fakeSource) MetricsSnapshot() goAccount.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goAccount.MetricsSnapshot{
		Counters:   make(map[goAccount.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goAccount.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newSource(addr string, recovered uint64) *fakeSource {
	return &fakeSource{
		addr: common.HexToAddress(addr),
		snapshot: goAccount.MetricsSnapshot{
			Counters: map[goAccount.MetricID]uint64{
				goAccount.MetricOwnerRecovered: recovered,
			},
			Histograms: map[goAccount.MetricID][]uint64{
				goAccount.MetricValidateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}
}

func findSum(rm metricdata.ResourceMetrics, name string) (metricdata.Sum[int64], bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				return sum, true
			}
		}
	}
	return metricdata.Sum[int64]{}, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("goaccount-test")

	a := newSource("0x00000000000000000000000000000000000000a1", 3)
	b := newSource("0x00000000000000000000000000000000000000b2", 5)
	exp, err := NewExporter(meter, a, b)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	sum, ok := findSum(rm, "goaccount_owner_recovered_total")
	if !ok {
		t.Fatal("expected owner_recovered counter to be collected")
	}
	if len(sum.DataPoints) != 2 {
		t.Fatalf("expected one data point per account, got %d", len(sum.DataPoints))
	}
	for _, dp := range sum.DataPoints {
		v, ok := dp.Attributes.Value(AccountKey)
		if !ok {
			t.Fatal("expected account attribute")
		}
		want := int64(3)
		if v.AsString() == b.addr.Hex() {
			want = 5
		}
		if dp.Value != want {
			t.Fatalf("account %s: expected %d, got %d", v.AsString(), want, dp.Value)
		}
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("goaccount-test")

	if _, err := NewExporter(meter); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := NewExporter(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewExporter(nil, newSource("0x01", 0)); err == nil {
		t.Fatal("expected error for nil meter")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("goaccount-test")

	src := newSource("0x00000000000000000000000000000000000000a1", 1)
	exp, err := NewExporter(meter, src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goAccount.MetricOwnerRecovered] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
