package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/aa"
	"github.com/MrEthical07/goAccount/ledger"
	"github.com/MrEthical07/goAccount/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

type manualClock struct {
	mu  sync.Mutex
	now int64
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Unix(c.now, 0)
}

func (c *manualClock) set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = unix
}

type scenario struct {
	name string
	run  func(ctx context.Context, e *env, clock *manualClock) error
}

var scenarios = []scenario{
	{name: "session-key-window", run: sessionKeyWindow},
	{name: "guardian-recovery", run: guardianRecovery},
	{name: "user-op-prefund", run: userOpPrefund},
	{name: "batch-revert", run: batchRevert},
}

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "Run the reference account scenarios and report each result.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			failed := runScenarios(cmd.Context(), cfg, func(name string, err error) {
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", name, err)
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s\n", name)
			})
			if failed > 0 {
				return fmt.Errorf("%d scenario(s) failed", failed)
			}
			return nil
		},
	}
}

// runScenarios runs every scenario on a fresh account and returns the number
// of failures.
func runScenarios(ctx context.Context, cfg simConfig, report func(name string, err error)) int {
	if ctx == nil {
		ctx = context.Background()
	}
	failed := 0
	for _, s := range scenarios {
		clock := &manualClock{}
		e, err := newEnv(ctx, cfg, goAccount.DefaultConfig(), clock)
		if err == nil {
			err = s.run(ctx, e, clock)
			e.cleanup()
		}
		if err != nil {
			failed++
		}
		report(s.name, err)
	}
	return failed
}

func sessionKeyWindow(ctx context.Context, e *env, clock *manualClock) error {
	key := common.HexToAddress("0x00000000000000000000000000000000000005e5")

	clock.set(0)
	if _, err := e.account.AddSessionKey(ctx, e.owner, key, 3600); err != nil {
		return err
	}
	clock.set(3600)
	if !e.account.IsSessionKeyValid(ctx, key) {
		return errors.New("key must be valid at its expiry")
	}
	clock.set(3601)
	if e.account.IsSessionKeyValid(ctx, key) {
		return errors.New("key must be invalid after its expiry")
	}
	if err := e.account.RevokeSessionKey(ctx, e.owner, key); err != nil {
		return err
	}
	if err := e.account.RevokeSessionKey(ctx, e.owner, key); !errors.Is(err, goAccount.ErrNotFound) {
		return fmt.Errorf("second revoke: expected not found, got %v", err)
	}
	return nil
}

func guardianRecovery(ctx context.Context, e *env, _ *manualClock) error {
	guardian := common.HexToAddress("0x0000000000000000000000000000000000009a01")
	newOwner := common.HexToAddress("0x0000000000000000000000000000000000000e01")

	if err := e.account.AddGuardian(ctx, e.owner, guardian); err != nil {
		return err
	}
	if err := e.account.RecoverOwner(ctx, guardian, newOwner); err != nil {
		return err
	}
	if err := e.account.AddGuardian(ctx, e.owner, newOwner); !errors.Is(err, goAccount.ErrUnauthorized) {
		return fmt.Errorf("old owner: expected unauthorized, got %v", err)
	}
	return e.account.AddGuardian(ctx, newOwner, common.HexToAddress("0x0000000000000000000000000000000000009a02"))
}

func userOpPrefund(ctx context.Context, e *env, _ *manualClock) error {
	hash := crypto.Keccak256Hash([]byte("simulated user operation"))
	sig, err := signer.SignDigest(e.ownerKey, hash)
	if err != nil {
		return err
	}

	before := e.ledger.Balance(simEntryPoint)
	data, err := e.account.ValidateUserOp(ctx, simEntryPoint, &aa.UserOperation{Sender: simAccount, Signature: sig}, hash, big.NewInt(1_000))
	if err != nil {
		return err
	}
	if !data.IsZero() {
		return fmt.Errorf("expected validationData 0, got %s", data.Hex())
	}
	if got := new(big.Int).Sub(e.ledger.Balance(simEntryPoint), before); got.Cmp(big.NewInt(1_000)) != 0 {
		return fmt.Errorf("expected prefund 1000, got %s", got)
	}

	if _, err := e.account.ValidateUserOp(ctx, e.owner, &aa.UserOperation{Signature: sig}, hash, nil); !errors.Is(err, goAccount.ErrUnauthorized) {
		return fmt.Errorf("non-EntryPoint caller: expected unauthorized, got %v", err)
	}
	return nil
}

func batchRevert(ctx context.Context, e *env, _ *manualClock) error {
	payee := common.HexToAddress("0x000000000000000000000000000000000000bee1")
	failing := common.HexToAddress("0x000000000000000000000000000000000000dead")
	reason := []byte{0x08, 0xc3, 0x79, 0xa0}
	e.ledger.Register(failing, func(context.Context, *ledger.Ledger, ledger.Call) ([]byte, error) {
		return nil, ledger.RevertWith(reason)
	})

	before := e.ledger.Balance(simAccount)
	_, err := e.account.ExecuteBatch(ctx, simEntryPoint,
		[]common.Address{payee, failing},
		[]*big.Int{big.NewInt(500), nil},
		[][]byte{nil, nil},
	)
	var execErr *goAccount.ExecutionError
	if !errors.As(err, &execErr) {
		return fmt.Errorf("expected execution error, got %v", err)
	}
	if execErr.Index != 1 || !bytes.Equal(execErr.Payload, reason) {
		return fmt.Errorf("unexpected failure %+v", execErr)
	}
	if e.ledger.Balance(simAccount).Cmp(before) != 0 || e.ledger.Balance(payee).Sign() != 0 {
		return errors.New("batch effects were not reverted")
	}
	return nil
}
