package goAccount

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

const (
	auditEventSessionKeyAdded          = "session_key_added"
	auditEventSessionKeyAddRejected    = "session_key_add_rejected"
	auditEventSessionKeyRevoked        = "session_key_revoked"
	auditEventSessionKeyRevokeRejected = "session_key_revoke_rejected"
	auditEventGuardianAdded            = "guardian_added"
	auditEventGuardianAddRejected      = "guardian_add_rejected"
	auditEventGuardianRemoved          = "guardian_removed"
	auditEventGuardianRemoveRejected   = "guardian_remove_rejected"
	auditEventOwnerRecovered           = "owner_recovered"
	auditEventOwnerRecoverRejected     = "owner_recover_rejected"
	auditEventPrefundFailed            = "prefund_failed"
	auditEventSessionGrantIssued       = "session_grant_issued"
)

// AuditErrorCode is the stable error classification carried in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized    AuditErrorCode = "unauthorized"
	auditErrInvalidArgument AuditErrorCode = "invalid_argument"
	auditErrNotFound        AuditErrorCode = "not_found"
	auditErrExecution       AuditErrorCode = "execution_failed"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrGrant           AuditErrorCode = "grant_invalid"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (a *Account) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject common.Address,
	actor common.Address,
	err error,
	metadataBuilder func() map[string]string,
) {
	if a == nil || a.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: a.clock.Now().UTC(),
		EventType: eventType,
		Account:   a.address.Hex(),
		Success:   success,
		RequestID: requestIDFromContext(ctx),
		Metadata:  metadata,
	}
	if subject != (common.Address{}) {
		event.Subject = subject.Hex()
	}
	if actor != (common.Address{}) {
		event.Actor = actor.Hex()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	a.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidArgument):
		return auditErrInvalidArgument
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrExecutionFailed):
		return auditErrExecution
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrGrantInvalid):
		return auditErrGrant
	default:
		return auditErrInternal
	}
}
