package goAccount

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Role identifies which registry authorized a signature.
type Role uint8

const (
	RoleNone Role = iota
	RoleOwner
	RoleSessionKey
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleSessionKey:
		return "session_key"
	default:
		return "none"
	}
}

// Verdict is the outcome of signature validation. A zero Verdict is invalid.
type Verdict struct {
	Valid  bool
	Signer common.Address
	Role   Role
	// ValidUntil is the session key expiry for RoleSessionKey, 0 otherwise.
	ValidUntil int64
}

// SessionKeyInfo is the introspection view of one session-key entry.
type SessionKeyInfo struct {
	Key    common.Address
	Expiry int64
	Valid  bool
}

// Invoker performs the side-effecting calls made by Execute and the prefund
// transfer made by ValidateUserOp. Failures must carry the raw revert payload
// (for example *aa.RevertError) and are surfaced unmodified.
//
// Snapshot and RevertToSnapshot give batches all-or-nothing semantics.
//
// Snapshot and RevertToSnapshot bracket one execution. An Account never
// interleaves two of its own executions; an Invoker shared by several
// accounts must keep their snapshot scopes from undoing each other.
type Invoker interface {
	Call(ctx context.Context, from, to common.Address, value *big.Int, data []byte) ([]byte, error)
	Snapshot() int
	RevertToSnapshot(id int)
}

// Clock supplies the block timestamp used for expiry checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	StoreAvailable bool
	StoreLatency   time.Duration
}
