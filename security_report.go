package goAccount

import (
	"context"

	"github.com/MrEthical07/goAccount/internal/security"
)

// SecurityReport summarizes the account's recovery and session-key posture.
type SecurityReport struct {
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

// SecurityReport reads the registries and returns the posture report.
func (a *Account) SecurityReport(ctx context.Context) (SecurityReport, error) {
	if err := a.ready(); err != nil {
		return SecurityReport{}, err
	}

	owner, err := a.Owner(ctx)
	if err != nil {
		return SecurityReport{}, err
	}
	count, err := a.GuardianCount(ctx)
	if err != nil {
		return SecurityReport{}, err
	}
	ownerIsGuardian, err := a.IsGuardian(ctx, owner)
	if err != nil {
		return SecurityReport{}, err
	}
	keys, err := a.ListSessionKeys(ctx)
	if err != nil {
		return SecurityReport{}, err
	}
	live := 0
	for _, k := range keys {
		if k.Valid {
			live++
		}
	}

	r := security.BuildReport(security.ReportInput{
		GuardianCount:          count,
		OwnerIsGuardian:        ownerIsGuardian,
		SessionKeyCount:        len(keys),
		LiveSessionKeyCount:    live,
		MaxSessionKeyValidity:  a.config.SessionKeys.MaxValidity,
		SessionKeyWindowPacked: a.config.Validation.PackSessionKeyWindow,
		UserOpHashVerified:     a.config.Validation.VerifyUserOpHash,
		GrantsEnabled:          a.config.Grant.Enabled,
		GrantSigningAlgorithm:  a.config.Grant.SigningMethod,
		AuditEnabled:           a.config.Audit.Enabled,
	})

	return SecurityReport{
		GuardianCount:          r.GuardianCount,
		RecoveryThreshold:      r.RecoveryThreshold,
		RecoveryTimelock:       r.RecoveryTimelock,
		OwnerIsGuardian:        r.OwnerIsGuardian,
		SessionKeyCount:        r.SessionKeyCount,
		LiveSessionKeyCount:    r.LiveSessionKeyCount,
		MaxSessionKeyValidity:  r.MaxSessionKeyValidity,
		SessionKeyWindowPacked: r.SessionKeyWindowPacked,
		UserOpHashVerified:     r.UserOpHashVerified,
		GrantsEnabled:          r.GrantsEnabled,
		GrantSigningAlgorithm:  r.GrantSigningAlgorithm,
		AuditEnabled:           r.AuditEnabled,
		Warnings:               r.Warnings,
	}, nil
}
