package internaldefs

import (
	goAccount "github.com/MrEthical07/goAccount"
)

// Namespace prefixes every exported metric name.
const Namespace = "goaccount"

// CounterDef binds a MetricID to its exported name.
type CounterDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram-backed MetricID to its exported name.
type HistogramDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = Namespace + "_audit_dropped_total"

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goAccount.MetricSessionKeyAdded, Name: Namespace + "_session_key_added_total", Help: "Session keys added or re-added."},
	{ID: goAccount.MetricSessionKeyRevoked, Name: Namespace + "_session_key_revoked_total", Help: "Session keys revoked."},
	{ID: goAccount.MetricGuardianAdded, Name: Namespace + "_guardian_added_total", Help: "Guardians added."},
	{ID: goAccount.MetricGuardianRemoved, Name: Namespace + "_guardian_removed_total", Help: "Guardians removed."},
	{ID: goAccount.MetricOwnerRecovered, Name: Namespace + "_owner_recovered_total", Help: "Owner replacements performed by a guardian."},
	{ID: goAccount.MetricValidationOwner, Name: Namespace + "_validation_owner_total", Help: "Signatures accepted as the owner."},
	{ID: goAccount.MetricValidationSessionKey, Name: Namespace + "_validation_session_key_total", Help: "Signatures accepted as a live session key."},
	{ID: goAccount.MetricValidationFailure, Name: Namespace + "_validation_failure_total", Help: "Signatures that did not authorize the operation."},
	{ID: goAccount.MetricUnauthorized, Name: Namespace + "_unauthorized_total", Help: "Calls rejected for a missing role."},
	{ID: goAccount.MetricInvalidArgument, Name: Namespace + "_invalid_argument_total", Help: "Calls rejected for invalid arguments."},
	{ID: goAccount.MetricPrefundPaid, Name: Namespace + "_prefund_paid_total", Help: "Prefund transfers sent to the EntryPoint."},
	{ID: goAccount.MetricPrefundFailed, Name: Namespace + "_prefund_failed_total", Help: "Prefund transfers that failed and were ignored."},
	{ID: goAccount.MetricExecuteSuccess, Name: Namespace + "_execute_success_total", Help: "Execute and batch calls that completed."},
	{ID: goAccount.MetricExecuteFailure, Name: Namespace + "_execute_failure_total", Help: "Execute and batch calls that reverted."},
	{ID: goAccount.MetricGrantIssued, Name: Namespace + "_grant_issued_total", Help: "Signed session grants issued."},
	{ID: goAccount.MetricGrantRejected, Name: Namespace + "_grant_rejected_total", Help: "Session grants that failed verification."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAccount.MetricValidateLatency, Name: Namespace + "_validate_latency_seconds", Help: "Signature validation latency."},
}

// Bucket is one histogram upper bound in its Prometheus label form and in
// the suffix form used for OTel instrument names.
type Bucket struct {
	LE     string
	Suffix string
}

// Buckets mirrors the in-process histogram layout.
var Buckets = [8]Bucket{
	{LE: "5e-05", Suffix: "50us"},
	{LE: "0.0001", Suffix: "100us"},
	{LE: "0.00025", Suffix: "250us"},
	{LE: "0.0005", Suffix: "500us"},
	{LE: "0.001", Suffix: "1ms"},
	{LE: "0.0025", Suffix: "2_5ms"},
	{LE: "0.01", Suffix: "10ms"},
	{LE: "+Inf", Suffix: "inf"},
}

// CumulativeBuckets converts raw per-bucket counts into cumulative counts.
// Missing trailing buckets count as zero.
func CumulativeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
