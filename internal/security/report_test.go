package security

import (
	"reflect"
	"testing"
)

func TestBuildReportNoGuardians(t *testing.T) {
	r := BuildReport(ReportInput{SessionKeyWindowPacked: true, MaxSessionKeyValidity: 3600})

	if r.RecoveryThreshold != 1 || r.RecoveryTimelock != 0 {
		t.Fatalf("unexpected recovery parameters %+v", r)
	}
	if !reflect.DeepEqual(r.Warnings, []string{WarnNoGuardians}) {
		t.Fatalf("unexpected warnings %v", r.Warnings)
	}
}

func TestBuildReportWarnings(t *testing.T) {
	r := BuildReport(ReportInput{
		GuardianCount:       2,
		OwnerIsGuardian:     true,
		SessionKeyCount:     3,
		LiveSessionKeyCount: 1,
	})

	want := []string{
		WarnExpiredSessionKeys,
		WarnOwnerIsGuardian,
		WarnWindowNotPacked,
		WarnSessionKeysUncapped,
		WarnSingleGuardianRecovery,
	}
	if !reflect.DeepEqual(r.Warnings, want) {
		t.Fatalf("unexpected warnings %v", r.Warnings)
	}
}

func TestBuildReportGrantAlgorithmOnlyWhenEnabled(t *testing.T) {
	if r := BuildReport(ReportInput{GrantSigningAlgorithm: "ed25519"}); r.GrantSigningAlgorithm != "" {
		t.Fatalf("expected empty algorithm for disabled grants")
	}
	if r := BuildReport(ReportInput{GrantsEnabled: true, GrantSigningAlgorithm: "ed25519"}); r.GrantSigningAlgorithm != "ed25519" {
		t.Fatalf("expected algorithm to be reported")
	}
}
