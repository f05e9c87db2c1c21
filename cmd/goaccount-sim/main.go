package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/ledger"
	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	simAccount    = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	simEntryPoint = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "goaccount-sim",
		Short:         "Drive a goAccount module against an in-process ledger.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().String("config", "", "optional config file (yaml, json or toml)")
	cmd.PersistentFlags().String("backend", "memory", "registry backend: memory, redis or sqlite")
	cmd.PersistentFlags().String("redis-addr", "", "redis address; miniredis is started when empty")
	cmd.PersistentFlags().String("sqlite-dsn", ":memory:", "sqlite DSN for the sqlite backend")
	cmd.PersistentFlags().String("prefix", "aa", "registry key prefix")
	cmd.PersistentFlags().String("log-level", "warn", "log level: trace, debug, info, warn, error, crit")
	cmd.PersistentFlags().Bool("audit", false, "log account audit events at info level")

	cmd.AddCommand(newScenariosCmd(), newBenchCmd())
	return cmd
}

// env is one simulated account with its owner key and ledger.
type env struct {
	account  *goAccount.Account
	ledger   *ledger.Ledger
	owner    common.Address
	ownerKey *ecdsa.PrivateKey
	cleanup  func()
}

func newEnv(ctx context.Context, cfg simConfig, accountCfg goAccount.Config, clock goAccount.Clock) (*env, error) {
	lvl, err := log.LvlFromString(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, false))

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	owner := crypto.PubkeyToAddress(key.PublicKey)

	l := ledger.New()
	l.SetBalance(simAccount, big.NewInt(1_000_000_000))

	accountCfg.Store.KeyPrefix = cfg.KeyPrefix

	cleanup := func() {}
	b := goAccount.New().
		WithConfig(accountCfg).
		WithAddress(simAccount).
		WithEntryPoint(simEntryPoint).
		WithOwner(owner).
		WithInvoker(l).
		WithLogger(logger)
	if clock != nil {
		b.WithClock(clock)
	}
	if cfg.Audit {
		b.WithAuditSink(goAccount.NewLogSink(logger.With("component", "audit")))
	}

	switch cfg.Backend {
	case "redis":
		addr := cfg.RedisAddr
		var mr *miniredis.Miniredis
		if addr == "" {
			mr, err = miniredis.Run()
			if err != nil {
				return nil, fmt.Errorf("start miniredis: %w", err)
			}
			addr = mr.Addr()
			logger.Info("Using miniredis", "addr", addr)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			if mr != nil {
				mr.Close()
			}
		}
		b.WithRedis(client)
	case "sqlite":
		b.WithSQLite(cfg.SQLiteDSN)
	}

	account, err := b.Build(ctx)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &env{
		account:  account,
		ledger:   l,
		owner:    owner,
		ownerKey: key,
		cleanup: func() {
			_ = account.Close()
			cleanup()
		},
	}, nil
}
