package goAccount

import (
	"context"

	"github.com/MrEthical07/goAccount/permission"
	"github.com/ethereum/go-ethereum/common"
)

// AddGuardian adds guardian to the guardian set. Only the owner may call it.
// A zero address or an existing member yields ErrInvalidArgument.
func (a *Account) AddGuardian(ctx context.Context, caller, guardian common.Address) error {
	if err := a.ready(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.addGuardianLocked(ctx, caller, guardian)
	if err != nil {
		if isInvalidArgument(err) {
			a.metricInc(MetricInvalidArgument)
		}
		a.emitAudit(ctx, auditEventGuardianAddRejected, false, guardian, caller, err, nil)
		return err
	}

	a.metricInc(MetricGuardianAdded)
	a.emitAudit(ctx, auditEventGuardianAdded, true, guardian, caller, nil, nil)
	a.logger.Info("Guardian added", "account", a.address, "guardian", guardian)
	return nil
}

func (a *Account) addGuardianLocked(ctx context.Context, caller, guardian common.Address) error {
	if _, err := a.authorize(ctx, caller, permission.CapManageGuardians); err != nil {
		return err
	}
	if guardian == (common.Address{}) {
		return invalidArgument("guardian must not be the zero address")
	}
	if err := a.store.AddGuardian(ctx, a.address, caller, guardian); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// RemoveGuardian removes guardian from the set. Only the owner may call it; a
// non-member yields ErrNotFound.
func (a *Account) RemoveGuardian(ctx context.Context, caller, guardian common.Address) error {
	if err := a.ready(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.removeGuardianLocked(ctx, caller, guardian)
	if err != nil {
		a.emitAudit(ctx, auditEventGuardianRemoveRejected, false, guardian, caller, err, nil)
		return err
	}

	a.metricInc(MetricGuardianRemoved)
	a.emitAudit(ctx, auditEventGuardianRemoved, true, guardian, caller, nil, nil)
	a.logger.Info("Guardian removed", "account", a.address, "guardian", guardian)
	return nil
}

func (a *Account) removeGuardianLocked(ctx context.Context, caller, guardian common.Address) error {
	if _, err := a.authorize(ctx, caller, permission.CapManageGuardians); err != nil {
		return err
	}
	if err := a.store.RemoveGuardian(ctx, a.address, caller, guardian); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// RecoverOwner replaces the owner with newOwner. Any single guardian may
// call it and the change takes effect immediately. A zero newOwner yields
// ErrInvalidArgument; a non-guardian caller yields ErrUnauthorized.
//
// Session keys and guardians registered before recovery are kept.
func (a *Account) RecoverOwner(ctx context.Context, caller, newOwner common.Address) error {
	if err := a.ready(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	prev, err := a.recoverOwnerLocked(ctx, caller, newOwner)
	if err != nil {
		if isInvalidArgument(err) {
			a.metricInc(MetricInvalidArgument)
		}
		a.emitAudit(ctx, auditEventOwnerRecoverRejected, false, newOwner, caller, err, nil)
		return err
	}

	a.metricInc(MetricOwnerRecovered)
	a.emitAudit(ctx, auditEventOwnerRecovered, true, newOwner, caller, nil, func() map[string]string {
		return map[string]string{"previous_owner": prev.Hex()}
	})
	a.logger.Warn("Account owner recovered", "account", a.address, "guardian", caller, "previous", prev, "owner", newOwner)
	return nil
}

func (a *Account) recoverOwnerLocked(ctx context.Context, caller, newOwner common.Address) (common.Address, error) {
	if _, err := a.authorize(ctx, caller, permission.CapRecoverOwner); err != nil {
		return common.Address{}, err
	}
	if newOwner == (common.Address{}) {
		return common.Address{}, invalidArgument("new owner must not be the zero address")
	}
	prev, err := a.store.TransferOwner(ctx, a.address, caller, newOwner)
	if err != nil {
		return common.Address{}, mapStoreError(err)
	}
	return prev, nil
}

// IsGuardian reports whether addr is a current guardian.
func (a *Account) IsGuardian(ctx context.Context, addr common.Address) (bool, error) {
	if err := a.ready(); err != nil {
		return false, err
	}
	ok, err := a.store.IsGuardian(ctx, a.address, addr)
	if err != nil {
		return false, mapStoreError(err)
	}
	return ok, nil
}

// GuardianCount returns the number of guardians.
func (a *Account) GuardianCount(ctx context.Context) (int, error) {
	if err := a.ready(); err != nil {
		return 0, err
	}
	n, err := a.store.GuardianCount(ctx, a.address)
	if err != nil {
		return 0, mapStoreError(err)
	}
	return n, nil
}

// Guardians returns the guardian set sorted by address.
func (a *Account) Guardians(ctx context.Context) ([]common.Address, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	out, err := a.store.Guardians(ctx, a.address)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return out, nil
}
