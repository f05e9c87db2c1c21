package aa

import (
	"bytes"
	"testing"
)

func TestRevertReasonRoundTrip(t *testing.T) {
	payload := EncodeRevertReason("insufficient balance")
	err := &RevertError{Data: payload}
	if got := err.Error(); got != "execution reverted: insufficient balance" {
		t.Fatalf("unexpected message %q", got)
	}
	if !bytes.Equal(err.Data, payload) {
		t.Fatalf("payload must stay raw")
	}
}

func TestRevertErrorCustomPayload(t *testing.T) {
	err := &RevertError{Data: []byte{0xca, 0xfe}}
	if got := err.Error(); got != "execution reverted: 0xcafe" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := err.ErrorData(); got != "0xcafe" {
		t.Fatalf("unexpected error data %v", got)
	}
	if got := (&RevertError{}).Error(); got != "execution reverted" {
		t.Fatalf("unexpected empty message %q", got)
	}
}
