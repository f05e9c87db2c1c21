package goAccount

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnauthorized is returned when the caller lacks the role the operation requires.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is returned for zero identities, non-positive durations
	// and mismatched batch lengths.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when revoking or removing an entry that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExecutionFailed wraps a failed downstream call. See ExecutionError.
	ErrExecutionFailed = errors.New("execution failed")
	// ErrStoreUnavailable is returned when the registry backend cannot be reached.
	ErrStoreUnavailable = errors.New("registry store unavailable")
	// ErrAccountNotReady is returned by methods called on a nil or closed Account.
	ErrAccountNotReady = errors.New("account not initialized")
	// ErrGrantsDisabled is returned by grant operations when Config.Grant is disabled.
	ErrGrantsDisabled = errors.New("session grants disabled")
	// ErrGrantInvalid is returned for grants that fail signature or liveness checks.
	ErrGrantInvalid = errors.New("session grant invalid")
)

// ExecutionError reports a failed call made through Execute or ExecuteBatch.
// Payload is the raw revert data of the failing call, unmodified.
type ExecutionError struct {
	Index   int
	Target  common.Address
	Payload []byte
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: call %d to %s", ErrExecutionFailed, e.Index, e.Target.Hex())
	}
	return fmt.Sprintf("%s: call %d to %s: %v", ErrExecutionFailed, e.Index, e.Target.Hex(), e.Err)
}

func (e *ExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExecutionFailed}
	}
	return []error{ErrExecutionFailed, e.Err}
}
