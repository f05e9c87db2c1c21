package security

import "sort"

// Warning codes.
const (
	WarnNoGuardians            = "no_guardians"
	WarnSingleGuardianRecovery = "single_guardian_recovery"
	WarnOwnerIsGuardian        = "owner_is_guardian"
	WarnSessionKeysUncapped    = "session_keys_uncapped"
	WarnExpiredSessionKeys     = "expired_session_keys"
	WarnWindowNotPacked        = "session_key_window_not_packed"
)

// Report is the posture summary of one account.
type Report struct {
	GuardianCount          int
	RecoveryThreshold      int
	RecoveryTimelock       int64
	OwnerIsGuardian        bool
	SessionKeyCount        int
	LiveSessionKeyCount    int
	MaxSessionKeyValidity  int64
	SessionKeyWindowPacked bool
	UserOpHashVerified     bool
	GrantsEnabled          bool
	GrantSigningAlgorithm  string
	AuditEnabled           bool
	Warnings               []string
}

type ReportInput struct {
	GuardianCount          int
	OwnerIsGuardian        bool
	SessionKeyCount        int
	LiveSessionKeyCount    int
	MaxSessionKeyValidity  int64
	SessionKeyWindowPacked bool
	UserOpHashVerified     bool
	GrantsEnabled          bool
	GrantSigningAlgorithm  string
	AuditEnabled           bool
}

// BuildReport applies the warning rules to input. Recovery is always 1-of-N
// with no timelock.
func BuildReport(input ReportInput) Report {
	report := Report{
		GuardianCount:          input.GuardianCount,
		RecoveryThreshold:      1,
		RecoveryTimelock:       0,
		OwnerIsGuardian:        input.OwnerIsGuardian,
		SessionKeyCount:        input.SessionKeyCount,
		LiveSessionKeyCount:    input.LiveSessionKeyCount,
		MaxSessionKeyValidity:  input.MaxSessionKeyValidity,
		SessionKeyWindowPacked: input.SessionKeyWindowPacked,
		UserOpHashVerified:     input.UserOpHashVerified,
		GrantsEnabled:          input.GrantsEnabled,
		AuditEnabled:           input.AuditEnabled,
	}
	if input.GrantsEnabled {
		report.GrantSigningAlgorithm = input.GrantSigningAlgorithm
	}

	var warnings []string
	if input.GuardianCount == 0 {
		warnings = append(warnings, WarnNoGuardians)
	} else {
		warnings = append(warnings, WarnSingleGuardianRecovery)
	}
	if input.OwnerIsGuardian {
		warnings = append(warnings, WarnOwnerIsGuardian)
	}
	if input.MaxSessionKeyValidity <= 0 {
		warnings = append(warnings, WarnSessionKeysUncapped)
	}
	if input.SessionKeyCount > input.LiveSessionKeyCount {
		warnings = append(warnings, WarnExpiredSessionKeys)
	}
	if !input.SessionKeyWindowPacked {
		warnings = append(warnings, WarnWindowNotPacked)
	}
	sort.Strings(warnings)
	report.Warnings = warnings

	return report
}
