package registry

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrStoreUnavailable wraps backend failures (network, driver, decode).
	ErrStoreUnavailable = errors.New("registry store unavailable")
	// ErrAccountNotFound is returned when no owner record exists for the account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrOwnerMismatch is returned when the acting owner is no longer the owner.
	ErrOwnerMismatch = errors.New("owner mismatch")
	// ErrNotGuardian is returned when the acting guardian is not a member.
	ErrNotGuardian = errors.New("not a guardian")
	// ErrEntryExists is returned when adding a guardian that is already a member.
	ErrEntryExists = errors.New("entry already exists")
	// ErrEntryNotFound is returned when removing an absent session key or guardian.
	ErrEntryNotFound = errors.New("entry not found")
)

// SessionKey is one session-key registry entry. Expiry is unix seconds.
type SessionKey struct {
	Key    common.Address
	Expiry int64
}

// Store is the persistence contract shared by all backends.
//
// Guarded mutations take the acting principal and fail without side effects
// when it no longer holds the role.
type Store interface {
	// InitOwner creates the owner record if absent and returns the owner in
	// effect afterwards. An existing record is never overwritten.
	InitOwner(ctx context.Context, account, owner common.Address) (common.Address, error)
	Owner(ctx context.Context, account common.Address) (common.Address, error)
	// TransferOwner replaces the owner when guardian is a member and returns
	// the previous owner.
	TransferOwner(ctx context.Context, account, guardian, newOwner common.Address) (common.Address, error)

	// SessionKeyExpiry returns 0 when the key has no entry.
	SessionKeyExpiry(ctx context.Context, account, key common.Address) (int64, error)
	SessionKeys(ctx context.Context, account common.Address) ([]SessionKey, error)
	PutSessionKey(ctx context.Context, account, actingOwner, key common.Address, expiry int64) error
	DeleteSessionKey(ctx context.Context, account, actingOwner, key common.Address) error

	IsGuardian(ctx context.Context, account, guardian common.Address) (bool, error)
	GuardianCount(ctx context.Context, account common.Address) (int, error)
	Guardians(ctx context.Context, account common.Address) ([]common.Address, error)
	AddGuardian(ctx context.Context, account, actingOwner, guardian common.Address) error
	RemoveGuardian(ctx context.Context, account, actingOwner, guardian common.Address) error

	Ping(ctx context.Context) error
}
