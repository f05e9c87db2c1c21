package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

type signedKey struct {
	addr common.Address
	sig  []byte
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure signature validation and session-key administration throughput.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runBench(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int("keys", 1000, "number of session keys to seed")
	cmd.Flags().Int("concurrency", 64, "number of concurrent workers")
	cmd.Flags().Int("ops", 20000, "operations per phase")
	cmd.Flags().Int64("validity", 3600, "session key validity in seconds")
	return cmd
}

func runBench(ctx context.Context, cfg simConfig, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	accountCfg := goAccount.DefaultConfig()
	accountCfg.Metrics.Enabled = true
	accountCfg.Metrics.EnableLatencyHistograms = true

	e, err := newEnv(ctx, cfg, accountCfg, nil)
	if err != nil {
		return err
	}
	defer e.cleanup()

	digest := crypto.Keccak256Hash([]byte("bench digest"))
	keys := make([]signedKey, cfg.Keys)
	fmt.Fprintf(out, "seeding %d session keys on %s...\n", cfg.Keys, cfg.Backend)
	startSeed := time.Now()
	for i := range keys {
		priv, err := crypto.GenerateKey()
		if err != nil {
			return err
		}
		k, err := seedKey(ctx, e, priv, digest, cfg.Validity)
		if err != nil {
			return err
		}
		keys[i] = k
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validate := runPhase(cfg.Ops, cfg.Concurrency, len(keys), func(idx int) error {
		if v := e.account.ValidateSignature(ctx, digest, keys[idx].sig); !v.Valid {
			return fmt.Errorf("key %s rejected", keys[idx].addr.Hex())
		}
		return nil
	})
	admin := runPhase(cfg.Ops, cfg.Concurrency, len(keys), func(idx int) error {
		_, err := e.account.AddSessionKey(ctx, e.owner, keys[idx].addr, cfg.Validity)
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "validate", validate)
	printStats(out, "add_session_key", admin)
	snap := e.account.MetricsSnapshot()
	fmt.Fprintf(out, "metrics: session_key_validations=%d failures=%d\n",
		snap.Counters[goAccount.MetricValidationSessionKey],
		snap.Counters[goAccount.MetricValidationFailure],
	)
	return nil
}

func seedKey(ctx context.Context, e *env, priv *ecdsa.PrivateKey, digest common.Hash, validity int64) (signedKey, error) {
	addr := crypto.PubkeyToAddress(priv.PublicKey)
	if _, err := e.account.AddSessionKey(ctx, e.owner, addr, validity); err != nil {
		return signedKey{}, err
	}
	sig, err := signer.SignDigest(priv, digest)
	if err != nil {
		return signedKey{}, err
	}
	return signedKey{addr: addr, sig: sig}, nil
}

func runPhase(ops, concurrency, keys int, op func(idx int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r.Intn(keys))
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
