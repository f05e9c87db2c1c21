package goAccount

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricValidationOwner)
	}
}

func BenchmarkMetricsIncDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricValidationOwner)
	}
}

var hotValidationMetrics = [...]MetricID{
	MetricValidationOwner,
	MetricValidationSessionKey,
	MetricValidationFailure,
	MetricPrefundPaid,
}

func BenchmarkMetricsIncMixedParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(hotValidationMetrics[idx%len(hotValidationMetrics)])
			idx++
		}
	})
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	d := 80 * time.Microsecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricValidateLatency, d)
		}
	})
}

func benchmarkValidateSignature(b *testing.B, metricsEnabled bool, sessionKey bool) {
	env := newTestEnv(b, backends()[0], func(bl *Builder) {
		bl.WithMetricsEnabled(metricsEnabled)
	})
	ctx := context.Background()
	digest := crypto.Keccak256Hash([]byte("bench"))

	key := env.ownerKey
	if sessionKey {
		var addr common.Address
		key, addr = newKey(b)
		if _, err := env.account.AddSessionKey(ctx, env.owner, addr, 3600); err != nil {
			b.Fatalf("AddSessionKey: %v", err)
		}
	}
	sig, err := signer.SignDigest(key, digest)
	if err != nil {
		b.Fatalf("sign: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !env.account.ValidateSignature(ctx, digest, sig).Valid {
			b.Fatal("expected valid signature")
		}
	}
}

func BenchmarkValidateSignatureOwner(b *testing.B) {
	benchmarkValidateSignature(b, false, false)
}

func BenchmarkValidateSignatureOwnerMetrics(b *testing.B) {
	benchmarkValidateSignature(b, true, false)
}

func BenchmarkValidateSignatureSessionKey(b *testing.B) {
	benchmarkValidateSignature(b, false, true)
}
