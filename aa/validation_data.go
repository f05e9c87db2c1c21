package aa

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// MaxTimestamp is the largest value representable in a uint48 time field.
	MaxTimestamp uint64 = 1<<48 - 1

	validUntilShift = 160
	validAfterShift = 208
)

// SigFailedAggregator is the aggregator value that marks a signature failure.
var SigFailedAggregator = common.Address{19: 1}

// ValidationData is the unpacked form of the validationData word.
type ValidationData struct {
	Aggregator common.Address // zero = success, SigFailedAggregator = failure
	ValidUntil uint64         // 0 = no upper bound
	ValidAfter uint64
}

// Valid returns validationData signalling a valid signature with no time range.
func Valid() ValidationData {
	return ValidationData{}
}

// SigFailed returns validationData signalling SIG_VALIDATION_FAILED.
func SigFailed() ValidationData {
	return ValidationData{Aggregator: SigFailedAggregator}
}

// Failed reports whether the aggregator slot carries the failure marker.
func (v ValidationData) Failed() bool {
	return v.Aggregator == SigFailedAggregator
}

// ActiveAt reports whether ts falls inside [ValidAfter, ValidUntil], with a
// zero ValidUntil treated as unbounded.
func (v ValidationData) ActiveAt(ts uint64) bool {
	until := v.ValidUntil
	if until == 0 {
		until = MaxTimestamp
	}
	return ts >= v.ValidAfter && ts <= until
}

// Pack encodes v into the 256-bit word expected by the EntryPoint.
// Time values above MaxTimestamp are clamped.
func (v ValidationData) Pack() *uint256.Int {
	out := new(uint256.Int).SetBytes20(v.Aggregator.Bytes())

	if v.ValidUntil != 0 {
		until := new(uint256.Int).SetUint64(clamp48(v.ValidUntil))
		out.Or(out, until.Lsh(until, validUntilShift))
	}
	if v.ValidAfter != 0 {
		after := new(uint256.Int).SetUint64(clamp48(v.ValidAfter))
		out.Or(out, after.Lsh(after, validAfterShift))
	}
	return out
}

// ParseValidationData decodes a packed validationData word. A nil word is
// treated as zero (valid, unbounded).
func ParseValidationData(packed *uint256.Int) ValidationData {
	if packed == nil {
		return ValidationData{}
	}
	raw := packed.Bytes32()

	until := new(uint256.Int).Rsh(packed, validUntilShift)
	after := new(uint256.Int).Rsh(packed, validAfterShift)

	return ValidationData{
		Aggregator: common.BytesToAddress(raw[32-common.AddressLength:]),
		ValidUntil: until.Uint64() & MaxTimestamp,
		ValidAfter: after.Uint64() & MaxTimestamp,
	}
}

func clamp48(v uint64) uint64 {
	if v > MaxTimestamp {
		return MaxTimestamp
	}
	return v
}
