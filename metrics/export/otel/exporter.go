package otel

import (
	"context"
	"errors"
	"fmt"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/metrics/export/internaldefs"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// AccountKey is the attribute carrying the account address.
const AccountKey = attribute.Key("account")

// Source is what the exporter reads. *goAccount.Account satisfies it.
type Source interface {
	Address() common.Address
	MetricsSnapshot() goAccount.MetricsSnapshot
	AuditDropped() uint64
}

type observedCounter struct {
	id         goAccount.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      goAccount.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter observes account snapshots on every collection cycle.
type Exporter struct {
	sources      []Source
	registration metric.Registration
	counters     []observedCounter
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers observable instruments on meter for sources. Each
// observation is tagged with the account address.
func NewExporter(meter metric.Meter, sources ...Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if len(sources) == 0 {
		return nil, ErrNilSource
	}
	for _, s := range sources {
		if s == nil {
			return nil, ErrNilSource
		}
	}

	exporter := &Exporter{
		sources:    append([]Source(nil), sources...),
		counters:   make([]observedCounter, 0, len(internaldefs.CounterDefs)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)*9+1)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		for i, bucket := range internaldefs.Buckets {
			name := def.Name + "_bucket_le_" + bucket.Suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		countName := def.Name + "_count"
		countIns, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", countName, err)
		}
		h.count = countIns
		observables = append(observables, countIns)
		exporter.histograms = append(exporter.histograms, h)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	for _, src := range e.sources {
		attrs := metric.WithAttributes(AccountKey.String(src.Address().Hex()))
		snapshot := src.MetricsSnapshot()

		for _, c := range e.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]), attrs)
		}
		for _, h := range e.histograms {
			cumulative := internaldefs.CumulativeBuckets(snapshot.Histograms[h.id])
			for i := range cumulative {
				observer.ObserveInt64(h.buckets[i], int64(cumulative[i]), attrs)
			}
			observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]), attrs)
		}
		observer.ObserveInt64(e.auditDropped, int64(src.AuditDropped()), attrs)
	}
	return nil
}

// Close unregisters the callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
