package prometheus

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/metrics/export/internaldefs"
	"github.com/ethereum/go-ethereum/common"
)

// Source is what the exporter reads. *goAccount.Account satisfies it.
type Source interface {
	Address() common.Address
	MetricsSnapshot() goAccount.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders the metrics of one or more accounts in Prometheus text
// exposition format. Every series carries an account label.
type Exporter struct {
	mu      sync.RWMutex
	sources map[common.Address]Source
}

// NewExporter returns an exporter over sources. Later sources with the same
// address replace earlier ones.
func NewExporter(sources ...Source) *Exporter {
	e := &Exporter{sources: make(map[common.Address]Source, len(sources))}
	for _, s := range sources {
		e.Add(s)
	}
	return e
}

// Add registers s, replacing any source with the same address.
func (e *Exporter) Add(s Source) {
	if s == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources[s.Address()] = s
}

// Remove unregisters the source for addr.
func (e *Exporter) Remove(addr common.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sources, addr)
}

// Handler serves Render at whatever path it is mounted on.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(e.Render()))
	})
}

type sample struct {
	label    string
	snapshot goAccount.MetricsSnapshot
	dropped  uint64
}

// Render returns the exposition text. Accounts with metrics disabled and no
// dropped audit events are skipped; the output is empty when all are.
func (e *Exporter) Render() string {
	if e == nil {
		return ""
	}

	e.mu.RLock()
	samples := make([]sample, 0, len(e.sources))
	for addr, s := range e.sources {
		snap := s.MetricsSnapshot()
		dropped := s.AuditDropped()
		if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
			continue
		}
		samples = append(samples, sample{label: addr.Hex(), snapshot: snap, dropped: dropped})
	}
	e.mu.RUnlock()

	if len(samples) == 0 {
		return ""
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].label < samples[j].label })

	var b strings.Builder
	b.Grow(2048 * len(samples))

	for _, def := range internaldefs.CounterDefs {
		writeHeader(&b, def.Name, def.Help, "counter")
		for _, s := range samples {
			writeSample(&b, def.Name, s.label, "", s.snapshot.Counters[def.ID])
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		writeHeader(&b, def.Name, def.Help, "histogram")
		for _, s := range samples {
			cumulative := internaldefs.CumulativeBuckets(s.snapshot.Histograms[def.ID])
			for i, bucket := range internaldefs.Buckets {
				writeSample(&b, def.Name+"_bucket", s.label, bucket.LE, cumulative[i])
			}
			writeSample(&b, def.Name+"_count", s.label, "", cumulative[len(cumulative)-1])
			// Snapshots carry bucket counts only.
			writeSample(&b, def.Name+"_sum", s.label, "", 0)
		}
	}

	writeHeader(&b, internaldefs.AuditDroppedName, "Dropped audit events due to dispatcher backpressure.", "counter")
	for _, s := range samples {
		writeSample(&b, internaldefs.AuditDroppedName, s.label, "", s.dropped)
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name, account, le string, value uint64) {
	b.WriteString(name)
	b.WriteString(`{account="`)
	b.WriteString(account)
	b.WriteByte('"')
	if le != "" {
		b.WriteString(`,le="`)
		b.WriteString(le)
		b.WriteByte('"')
	}
	b.WriteString("} ")
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
