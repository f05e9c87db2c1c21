package goAccount

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAccount/grant"
	"github.com/MrEthical07/goAccount/permission"
	"github.com/ethereum/go-ethereum/common"
)

// IssueSessionGrant signs an off-chain grant for a live session key. Only the
// owner may issue grants; the grant expires no later than the key.
func (a *Account) IssueSessionGrant(ctx context.Context, caller, key common.Address) (string, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	if a.grants == nil {
		return "", ErrGrantsDisabled
	}
	if _, err := a.authorize(ctx, caller, permission.CapManageSessionKeys); err != nil {
		return "", err
	}

	expiry, err := a.SessionKeyExpiry(ctx, key)
	if err != nil {
		return "", err
	}
	if !liveExpiry(expiry, a.now()) {
		return "", fmt.Errorf("%w: session key %s is not live", ErrNotFound, key.Hex())
	}

	token, err := a.grants.Create(a.address, key, expiry)
	if err != nil {
		if errors.Is(err, grant.ErrGrantExpired) {
			return "", fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return "", err
	}

	a.metricInc(MetricGrantIssued)
	a.emitAudit(ctx, auditEventSessionGrantIssued, true, key, caller, nil, nil)
	return token, nil
}

// ParseSessionGrant checks the grant signature, lifetime and account binding
// without reading the registry. A grant for a revoked key still parses until
// it expires; use VerifySessionGrant where that matters.
func (a *Account) ParseSessionGrant(token string) (*grant.SessionGrantClaims, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if a.grants == nil {
		return nil, ErrGrantsDisabled
	}

	claims, err := a.grants.Parse(token)
	if err != nil {
		a.metricInc(MetricGrantRejected)
		return nil, fmt.Errorf("%w: %v", ErrGrantInvalid, err)
	}
	if claims.AccountAddress() != a.address {
		a.metricInc(MetricGrantRejected)
		return nil, fmt.Errorf("%w: grant issued for another account", ErrGrantInvalid)
	}
	return claims, nil
}

// VerifySessionGrant is ParseSessionGrant plus a registry check that the
// session key is still live at the expiry the grant was issued for. Revoking
// the key, or re-adding it with another expiry, invalidates outstanding grants.
func (a *Account) VerifySessionGrant(ctx context.Context, token string) (*grant.SessionGrantClaims, error) {
	claims, err := a.ParseSessionGrant(token)
	if err != nil {
		return nil, err
	}
	expiry, err := a.SessionKeyExpiry(ctx, claims.SessionKeyAddress())
	if err != nil {
		return nil, err
	}
	if !liveExpiry(expiry, a.now()) {
		a.metricInc(MetricGrantRejected)
		return nil, fmt.Errorf("%w: session key no longer live", ErrGrantInvalid)
	}
	if expiry != claims.KeyExpiry {
		a.metricInc(MetricGrantRejected)
		return nil, fmt.Errorf("%w: session key was re-added since issue", ErrGrantInvalid)
	}
	return claims, nil
}
