package goAccount

import (
	"context"
	"math"
	"strconv"

	"github.com/MrEthical07/goAccount/permission"
	"github.com/ethereum/go-ethereum/common"
)

// AddSessionKey registers key for validitySeconds from now and returns the
// absolute expiry. Re-adding a key replaces its expiry.
//
// Only the owner may call it. AddSessionKey returns ErrInvalidArgument for a
// zero key, a non-positive validity, a validity above
// Config.SessionKeys.MaxValidity, or an expiry that would overflow.
func (a *Account) AddSessionKey(ctx context.Context, caller, key common.Address, validitySeconds int64) (int64, error) {
	if err := a.ready(); err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	expiry, err := a.addSessionKeyLocked(ctx, caller, key, validitySeconds)
	if err != nil {
		if isInvalidArgument(err) {
			a.metricInc(MetricInvalidArgument)
		}
		a.emitAudit(ctx, auditEventSessionKeyAddRejected, false, key, caller, err, nil)
		return 0, err
	}

	a.metricInc(MetricSessionKeyAdded)
	a.emitAudit(ctx, auditEventSessionKeyAdded, true, key, caller, nil, func() map[string]string {
		return map[string]string{"expiry": strconv.FormatInt(expiry, 10)}
	})
	a.logger.Debug("Session key added", "account", a.address, "key", key, "expiry", expiry)
	return expiry, nil
}

func (a *Account) addSessionKeyLocked(ctx context.Context, caller, key common.Address, validitySeconds int64) (int64, error) {
	if _, err := a.authorize(ctx, caller, permission.CapManageSessionKeys); err != nil {
		return 0, err
	}
	if key == (common.Address{}) {
		return 0, invalidArgument("session key must not be the zero address")
	}
	if validitySeconds <= 0 {
		return 0, invalidArgument("session key validity must be positive, got %d", validitySeconds)
	}
	if limit := a.config.SessionKeys.MaxValidity; limit > 0 && validitySeconds > limit {
		return 0, invalidArgument("session key validity %d exceeds maximum %d", validitySeconds, limit)
	}

	now := a.now()
	if validitySeconds > math.MaxInt64-now {
		return 0, invalidArgument("session key expiry overflows")
	}
	expiry := now + validitySeconds

	if err := a.store.PutSessionKey(ctx, a.address, caller, key, expiry); err != nil {
		return 0, mapStoreError(err)
	}
	return expiry, nil
}

// RevokeSessionKey deletes the entry for key. Only the owner may call it; a
// key with no entry yields ErrNotFound.
func (a *Account) RevokeSessionKey(ctx context.Context, caller, key common.Address) error {
	if err := a.ready(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.revokeSessionKeyLocked(ctx, caller, key)
	if err != nil {
		a.emitAudit(ctx, auditEventSessionKeyRevokeRejected, false, key, caller, err, nil)
		return err
	}

	a.metricInc(MetricSessionKeyRevoked)
	a.emitAudit(ctx, auditEventSessionKeyRevoked, true, key, caller, nil, nil)
	a.logger.Debug("Session key revoked", "account", a.address, "key", key)
	return nil
}

func (a *Account) revokeSessionKeyLocked(ctx context.Context, caller, key common.Address) error {
	if _, err := a.authorize(ctx, caller, permission.CapManageSessionKeys); err != nil {
		return err
	}
	if err := a.store.DeleteSessionKey(ctx, a.address, caller, key); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// IsSessionKeyValid reports whether key has an entry whose expiry is at or
// after the current time. Store failures read as false.
func (a *Account) IsSessionKeyValid(ctx context.Context, key common.Address) bool {
	if a.ready() != nil {
		return false
	}
	expiry, err := a.store.SessionKeyExpiry(ctx, a.address, key)
	if err != nil {
		a.logger.Warn("Session key lookup failed", "account", a.address, "key", key, "err", err)
		return false
	}
	return liveExpiry(expiry, a.now())
}

// SessionKeyExpiry returns the stored expiry of key, 0 if it has no entry.
func (a *Account) SessionKeyExpiry(ctx context.Context, key common.Address) (int64, error) {
	if err := a.ready(); err != nil {
		return 0, err
	}
	expiry, err := a.store.SessionKeyExpiry(ctx, a.address, key)
	if err != nil {
		return 0, mapStoreError(err)
	}
	return expiry, nil
}

// ListSessionKeys returns every entry, expired ones included, sorted by key.
func (a *Account) ListSessionKeys(ctx context.Context) ([]SessionKeyInfo, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	entries, err := a.store.SessionKeys(ctx, a.address)
	if err != nil {
		return nil, mapStoreError(err)
	}

	now := a.now()
	out := make([]SessionKeyInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, SessionKeyInfo{
			Key:    e.Key,
			Expiry: e.Expiry,
			Valid:  liveExpiry(e.Expiry, now),
		})
	}
	return out, nil
}

// liveExpiry treats the expiry second itself as still valid.
func liveExpiry(expiry, now int64) bool {
	return expiry != 0 && expiry >= now
}
