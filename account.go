package goAccount

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/goAccount/grant"
	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/permission"
	"github.com/MrEthical07/goAccount/registry"
	"github.com/MrEthical07/goAccount/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Account is the authorization module of one smart account.
//
// Audit events are opt-in. DefaultConfig emits none; install a sink with
// Builder.WithAuditSink, after any WithConfig call, to receive session key,
// guardian and recovery events.
type Account struct {
	config     Config
	address    common.Address
	entryPoint common.Address

	store     registry.Store
	closer    io.Closer
	recoverer signer.Recoverer
	clock     Clock
	invoker   Invoker
	roles     *permission.RoleManager
	grants    *grant.Manager

	logger  log.Logger
	audit   *audit.Dispatcher
	metrics *Metrics

	// mu serializes administrative read-modify-write sequences. It is never
	// held across Invoker calls.
	mu sync.Mutex
	// exec serializes Invoker use, so a snapshot taken by one execution is
	// never reverted over the committed effects of another.
	exec   sync.Mutex
	closed atomic.Bool
}

// Address returns the account address. Registries are namespaced by it.
func (a *Account) Address() common.Address {
	return a.address
}

// EntryPoint returns the execution gateway address fixed at construction.
func (a *Account) EntryPoint() common.Address {
	return a.entryPoint
}

// Close flushes pending audit events and releases stores opened by the
// Builder. Stores passed in through WithStore are left open.
func (a *Account) Close() error {
	if a == nil || !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	if a.audit != nil {
		a.audit.Close()
	}
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// AuditDropped returns the number of audit events never delivered: dropped
// on a full buffer or cancelled context, or lost to a panicking sink.
func (a *Account) AuditDropped() uint64 {
	if a == nil || a.audit == nil {
		return 0
	}
	return a.audit.Dropped() + a.audit.Failed()
}

// MetricsSnapshot returns a copy of the account counters.
func (a *Account) MetricsSnapshot() MetricsSnapshot {
	if a == nil || a.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return a.metrics.Snapshot()
}

// Owner returns the current owner.
func (a *Account) Owner(ctx context.Context) (common.Address, error) {
	if err := a.ready(); err != nil {
		return common.Address{}, err
	}
	owner, err := a.store.Owner(ctx, a.address)
	if err != nil {
		return common.Address{}, mapStoreError(err)
	}
	return owner, nil
}

func (a *Account) metricInc(id MetricID) {
	if a == nil || a.metrics == nil {
		return
	}
	a.metrics.Inc(id)
}

func (a *Account) now() int64 {
	return a.clock.Now().Unix()
}

func (a *Account) ready() error {
	if a == nil || a.store == nil || a.closed.Load() {
		return ErrAccountNotReady
	}
	return nil
}

// authorize resolves the roles granting capability and reports the first one
// caller holds. Roles are checked in name order, so the EntryPoint equality
// check runs before any store read.
func (a *Account) authorize(ctx context.Context, caller common.Address, capability string) (string, error) {
	roles := a.roles.RolesFor(capability)
	if caller != (common.Address{}) {
		for _, role := range roles {
			ok, err := a.holdsRole(ctx, caller, role)
			if err != nil {
				return "", err
			}
			if ok {
				return role, nil
			}
		}
	}

	a.metricInc(MetricUnauthorized)
	return "", fmt.Errorf("%w: %s requires %s", ErrUnauthorized, capability, strings.Join(roles, " or "))
}

func (a *Account) holdsRole(ctx context.Context, caller common.Address, role string) (bool, error) {
	switch role {
	case permission.RoleEntryPoint:
		return caller == a.entryPoint, nil
	case permission.RoleOwner:
		owner, err := a.store.Owner(ctx, a.address)
		if err != nil {
			return false, mapStoreError(err)
		}
		return caller == owner, nil
	case permission.RoleGuardian:
		ok, err := a.store.IsGuardian(ctx, a.address, caller)
		if err != nil {
			return false, mapStoreError(err)
		}
		return ok, nil
	default:
		return false, nil
	}
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// mapStoreError translates registry sentinels into the account taxonomy. A
// guarded mutation that lost its role to a concurrent change is Unauthorized.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrOwnerMismatch),
		errors.Is(err, registry.ErrNotGuardian),
		errors.Is(err, registry.ErrAccountNotFound):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case errors.Is(err, registry.ErrEntryNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, registry.ErrEntryExists):
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

func isInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
