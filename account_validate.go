package goAccount

import (
	"context"
	"math/big"
	"time"

	"github.com/MrEthical07/goAccount/aa"
	"github.com/MrEthical07/goAccount/permission"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ValidateSignature recovers the signer of the EIP-191 wrapped digest and
// checks it against the owner, then the session-key registry. It never fails:
// malformed signatures, unknown signers, expired keys and store errors all
// produce an invalid Verdict.
func (a *Account) ValidateSignature(ctx context.Context, digest common.Hash, sig []byte) Verdict {
	if a == nil {
		return Verdict{}
	}
	start := time.Now()
	defer func() {
		a.metrics.Observe(MetricValidateLatency, time.Since(start))
	}()

	verdict := a.validateSignature(ctx, digest, sig)
	switch verdict.Role {
	case RoleOwner:
		a.metricInc(MetricValidationOwner)
	case RoleSessionKey:
		a.metricInc(MetricValidationSessionKey)
	default:
		a.metricInc(MetricValidationFailure)
	}
	return verdict
}

func (a *Account) validateSignature(ctx context.Context, digest common.Hash, sig []byte) Verdict {
	if a.ready() != nil {
		return Verdict{}
	}

	recovered, err := a.recoverer.Recover(digest, sig)
	if err != nil {
		a.logger.Debug("Signature recovery failed", "account", a.address, "err", err)
		return Verdict{}
	}

	owner, err := a.store.Owner(ctx, a.address)
	if err != nil {
		a.logger.Warn("Owner lookup failed during validation", "account", a.address, "err", err)
		return Verdict{Signer: recovered}
	}
	if recovered == owner {
		return Verdict{Valid: true, Signer: recovered, Role: RoleOwner}
	}

	expiry, err := a.store.SessionKeyExpiry(ctx, a.address, recovered)
	if err != nil {
		a.logger.Warn("Session key lookup failed during validation", "account", a.address, "signer", recovered, "err", err)
		return Verdict{Signer: recovered}
	}
	if !liveExpiry(expiry, a.now()) {
		return Verdict{Signer: recovered}
	}
	return Verdict{Valid: true, Signer: recovered, Role: RoleSessionKey, ValidUntil: expiry}
}

// ValidateUserOp is the EntryPoint-facing validation call. It returns the
// packed validationData word: 0 for an owner signature, 1 when the signature
// does not authorize the operation, and, for a session key with
// Config.Validation.PackSessionKeyWindow set, validUntil set to the key
// expiry.
//
// A non-zero missingAccountFunds is transferred to the EntryPoint whatever
// the verdict; a failed transfer is logged and ignored since the EntryPoint
// checks its own deposit. Only the EntryPoint may call ValidateUserOp.
func (a *Account) ValidateUserOp(ctx context.Context, caller common.Address, op *aa.UserOperation, userOpHash common.Hash, missingAccountFunds *big.Int) (*uint256.Int, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if _, err := a.authorize(ctx, caller, permission.CapValidateUserOp); err != nil {
		return nil, err
	}
	if op == nil {
		return nil, invalidArgument("user operation must not be nil")
	}

	data := a.userOpValidationData(ctx, op, userOpHash)
	a.payPrefund(ctx, missingAccountFunds)
	return data.Pack(), nil
}

func (a *Account) userOpValidationData(ctx context.Context, op *aa.UserOperation, userOpHash common.Hash) aa.ValidationData {
	if a.config.Validation.VerifyUserOpHash {
		if op.Sender != a.address {
			a.logger.Debug("User operation sender mismatch", "account", a.address, "sender", op.Sender)
			a.metricInc(MetricValidationFailure)
			return aa.SigFailed()
		}
		want := op.Hash(a.entryPoint, big.NewInt(a.config.Validation.ChainID))
		if want != userOpHash {
			a.logger.Debug("User operation hash mismatch", "account", a.address, "want", want, "got", userOpHash)
			a.metricInc(MetricValidationFailure)
			return aa.SigFailed()
		}
	}

	verdict := a.ValidateSignature(ctx, userOpHash, op.Signature)
	if !verdict.Valid {
		return aa.SigFailed()
	}

	data := aa.Valid()
	if verdict.Role == RoleSessionKey && a.config.Validation.PackSessionKeyWindow {
		data.ValidUntil = uint64(verdict.ValidUntil)
	}
	return data
}

func (a *Account) payPrefund(ctx context.Context, missing *big.Int) {
	if missing == nil || missing.Sign() <= 0 {
		return
	}
	if a.invoker == nil {
		a.logger.Warn("Prefund skipped, no invoker configured", "account", a.address, "amount", missing)
		a.metricInc(MetricPrefundFailed)
		return
	}

	a.exec.Lock()
	_, err := a.invoker.Call(ctx, a.address, a.entryPoint, missing, nil)
	a.exec.Unlock()
	if err != nil {
		a.logger.Warn("Prefund transfer failed", "account", a.address, "entrypoint", a.entryPoint, "amount", missing, "err", err)
		a.metricInc(MetricPrefundFailed)
		a.emitAudit(ctx, auditEventPrefundFailed, false, a.entryPoint, a.address, executionFailure(err), func() map[string]string {
			return map[string]string{"amount": missing.String()}
		})
		return
	}
	a.metricInc(MetricPrefundPaid)
}
