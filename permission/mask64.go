package permission

import "math/bits"

// Mask64 is a set of up to 64 capability bits. Out-of-range bits are ignored.
type Mask64 uint64

func (m Mask64) Has(bit int) bool {
	return bit >= 0 && bit < MaxCapabilities && m&(1<<bit) != 0
}

func (m *Mask64) Set(bit int) {
	if bit >= 0 && bit < MaxCapabilities {
		*m |= 1 << bit
	}
}

func (m *Mask64) Clear(bit int) {
	if bit >= 0 && bit < MaxCapabilities {
		*m &^= 1 << bit
	}
}

// Union returns the bits set in either mask.
func (m Mask64) Union(other Mask64) Mask64 {
	return m | other
}

// Len returns the number of set bits.
func (m Mask64) Len() int {
	return bits.OnesCount64(uint64(m))
}

func (m Mask64) Raw() uint64 {
	return uint64(m)
}
