package internaldefs

import (
	"strings"
	"testing"
)

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets([]uint64{1, 2, 3})
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if CumulativeBuckets(nil) != ([8]uint64{}) {
		t.Fatal("expected zero buckets for nil input")
	}
}

func TestDefinitionsUnique(t *testing.T) {
	seen := map[string]bool{AuditDroppedName: true}
	ids := map[uint16]bool{}
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, Namespace+"_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q breaks naming", def.Name)
		}
		if seen[def.Name] || ids[uint16(def.ID)] {
			t.Fatalf("duplicate counter %q", def.Name)
		}
		seen[def.Name] = true
		ids[uint16(def.ID)] = true
	}
	for _, def := range HistogramDefs {
		if ids[uint16(def.ID)] {
			t.Fatalf("histogram %q reuses a counter id", def.Name)
		}
	}
}
