package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/ethereum/go-ethereum/common"
)

type fakeSource struct {
	addr     common.Address
	snapshot goAccount.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) Address() common.Address                    { return f.addr }
func (f fakeSource) MetricsSnapshot() goAccount.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

var (
	addrA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	addrB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func emptySnapshot() goAccount.MetricsSnapshot {
	return goAccount.MetricsSnapshot{
		Counters:   map[goAccount.MetricID]uint64{},
		Histograms: map[goAccount.MetricID][]uint64{},
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporter(fakeSource{addr: addrA, snapshot: emptySnapshot()})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporter(fakeSource{
		addr: addrA,
		snapshot: goAccount.MetricsSnapshot{
			Counters: map[goAccount.MetricID]uint64{
				goAccount.MetricSessionKeyAdded: 7,
			},
			Histograms: map[goAccount.MetricID][]uint64{
				goAccount.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	label := `{account="` + addrA.Hex() + `"`
	for _, want := range []string{
		"goaccount_session_key_added_total" + label + "} 7",
		"goaccount_validate_latency_seconds_bucket" + label + `,le="5e-05"} 1`,
		"goaccount_validate_latency_seconds_bucket" + label + `,le="+Inf"} 36`,
		"goaccount_validate_latency_seconds_count" + label + "} 36",
		"goaccount_audit_dropped_total" + label + "} 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Count(out, "# TYPE goaccount_session_key_added_total counter") != 1 {
		t.Fatalf("expected a single TYPE line")
	}
}

func TestRenderMultipleAccountsSorted(t *testing.T) {
	snap := func(v uint64) goAccount.MetricsSnapshot {
		s := emptySnapshot()
		s.Counters[goAccount.MetricOwnerRecovered] = v
		return s
	}
	exp := NewExporter(
		fakeSource{addr: addrB, snapshot: snap(2)},
		fakeSource{addr: addrA, snapshot: snap(1)},
	)

	out := exp.Render()
	a := strings.Index(out, `goaccount_owner_recovered_total{account="`+addrA.Hex()+`"} 1`)
	b := strings.Index(out, `goaccount_owner_recovered_total{account="`+addrB.Hex()+`"} 2`)
	if a < 0 || b < 0 || a > b {
		t.Fatalf("expected both accounts in address order, got:\n%s", out)
	}

	exp.Remove(addrB)
	if strings.Contains(exp.Render(), addrB.Hex()) {
		t.Fatal("removed account must not be rendered")
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	s := emptySnapshot()
	s.Counters[goAccount.MetricGuardianAdded] = 1
	exp := NewExporter(fakeSource{addr: addrA, snapshot: s})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	s := emptySnapshot()
	s.Counters[goAccount.MetricValidationOwner] = 1000
	s.Counters[goAccount.MetricValidationSessionKey] = 800
	s.Counters[goAccount.MetricValidationFailure] = 40
	s.Counters[goAccount.MetricExecuteSuccess] = 900
	s.Histograms[goAccount.MetricValidateLatency] = []uint64{10, 20, 30, 40, 50, 60, 70, 80}
	exp := NewExporter(fakeSource{addr: addrA, snapshot: s})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
