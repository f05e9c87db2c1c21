package goAccount

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/MrEthical07/goAccount/aa"
	"github.com/MrEthical07/goAccount/permission"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type call struct {
	target common.Address
	value  *big.Int
	data   []byte
}

// Execute calls target with value and payload from the account. The
// EntryPoint and the owner may call it. A failed call returns an
// *ExecutionError whose Payload is the raw revert data.
func (a *Account) Execute(ctx context.Context, caller, target common.Address, value *big.Int, payload []byte) ([]byte, error) {
	return a.executeOne(ctx, caller, permission.CapExecuteGateway, target, value, payload)
}

// ExecuteByOwner is Execute restricted to the owner.
func (a *Account) ExecuteByOwner(ctx context.Context, caller, target common.Address, value *big.Int, payload []byte) ([]byte, error) {
	return a.executeOne(ctx, caller, permission.CapExecuteOwner, target, value, payload)
}

// ExecuteBatch runs the calls in order. values may be empty (no value sent)
// or match targets in length; payloads must match targets. If any call fails
// every effect of the batch is reverted and the *ExecutionError names the
// failing index.
func (a *Account) ExecuteBatch(ctx context.Context, caller common.Address, targets []common.Address, values []*big.Int, payloads [][]byte) ([][]byte, error) {
	return a.executeMany(ctx, caller, permission.CapExecuteGateway, targets, values, payloads)
}

// ExecuteBatchByOwner is ExecuteBatch restricted to the owner.
func (a *Account) ExecuteBatchByOwner(ctx context.Context, caller common.Address, targets []common.Address, values []*big.Int, payloads [][]byte) ([][]byte, error) {
	return a.executeMany(ctx, caller, permission.CapExecuteOwner, targets, values, payloads)
}

func (a *Account) executeOne(ctx context.Context, caller common.Address, capability string, target common.Address, value *big.Int, payload []byte) ([]byte, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if _, err := a.authorize(ctx, caller, capability); err != nil {
		return nil, err
	}
	if value != nil && value.Sign() < 0 {
		a.metricInc(MetricInvalidArgument)
		return nil, invalidArgument("value must not be negative")
	}

	results, err := a.run(ctx, []call{{target: target, value: value, data: payload}})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func (a *Account) executeMany(ctx context.Context, caller common.Address, capability string, targets []common.Address, values []*big.Int, payloads [][]byte) ([][]byte, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if _, err := a.authorize(ctx, caller, capability); err != nil {
		return nil, err
	}

	if len(payloads) != len(targets) {
		a.metricInc(MetricInvalidArgument)
		return nil, invalidArgument("batch has %d targets and %d payloads", len(targets), len(payloads))
	}
	if len(values) != 0 && len(values) != len(targets) {
		a.metricInc(MetricInvalidArgument)
		return nil, invalidArgument("batch has %d targets and %d values", len(targets), len(values))
	}

	calls := make([]call, len(targets))
	for i, target := range targets {
		calls[i] = call{target: target, data: payloads[i]}
		if len(values) != 0 {
			if values[i] != nil && values[i].Sign() < 0 {
				a.metricInc(MetricInvalidArgument)
				return nil, invalidArgument("batch value %d must not be negative", i)
			}
			calls[i].value = values[i]
		}
	}
	if len(calls) == 0 {
		return [][]byte{}, nil
	}
	return a.run(ctx, calls)
}

// run performs calls against the invoker inside one snapshot. Executions of
// one account are serialized; an Invoker handler must not call back into the
// same account synchronously.
func (a *Account) run(ctx context.Context, calls []call) ([][]byte, error) {
	if a.invoker == nil {
		return nil, fmt.Errorf("%w: no invoker configured", ErrAccountNotReady)
	}

	a.exec.Lock()
	defer a.exec.Unlock()

	snap := a.invoker.Snapshot()
	results := make([][]byte, len(calls))
	for i, c := range calls {
		value := c.value
		if value == nil {
			value = new(big.Int)
		}
		ret, err := a.invoker.Call(ctx, a.address, c.target, value, c.data)
		if err != nil {
			a.invoker.RevertToSnapshot(snap)
			a.metricInc(MetricExecuteFailure)
			a.logger.Debug("Execution reverted", "account", a.address, "index", i, "target", c.target, "err", err)
			return nil, &ExecutionError{
				Index:   i,
				Target:  c.target,
				Payload: revertPayload(err),
				Err:     err,
			}
		}
		results[i] = ret
	}

	a.metricInc(MetricExecuteSuccess)
	return results, nil
}

// dataError matches JSON-RPC errors carrying revert data, such as the ones
// returned by go-ethereum's rpc client.
type dataError interface {
	ErrorData() interface{}
}

// revertPayload extracts the raw revert data carried by err, if any.
func revertPayload(err error) []byte {
	var revert *aa.RevertError
	if errors.As(err, &revert) {
		return append([]byte(nil), revert.Data...)
	}

	var de dataError
	if errors.As(err, &de) {
		switch data := de.ErrorData().(type) {
		case []byte:
			return append([]byte(nil), data...)
		case string:
			if raw, decodeErr := hexutil.Decode(data); decodeErr == nil {
				return raw
			}
		}
	}
	return nil
}

// executionFailure wraps a non-batch call failure for audit classification.
func executionFailure(err error) error {
	return &ExecutionError{Payload: revertPayload(err), Err: err}
}
