package permission

import (
	"errors"
	"fmt"
	"sync"
)

// MaxCapabilities is the number of bits in a Mask64.
const MaxCapabilities = 64

var (
	ErrFrozen             = errors.New("permission: frozen")
	ErrCapabilityExists   = errors.New("permission: capability already registered")
	ErrCapabilityUnknown  = errors.New("permission: capability not registered")
	ErrCapabilityOverflow = errors.New("permission: capability limit exceeded")
)

// Registry assigns capability names to bit positions in registration order.
type Registry struct {
	mu     sync.RWMutex
	bits   map[string]int
	names  []string
	frozen bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{bits: make(map[string]int)}
}

// Register assigns the next free bit to name.
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.frozen:
		return -1, ErrFrozen
	case name == "":
		return -1, fmt.Errorf("%w: empty name", ErrCapabilityUnknown)
	case len(r.names) >= MaxCapabilities:
		return -1, ErrCapabilityOverflow
	}
	if _, exists := r.bits[name]; exists {
		return -1, fmt.Errorf("%w: %s", ErrCapabilityExists, name)
	}

	bit := len(r.names)
	r.bits[name] = bit
	r.names = append(r.names, name)
	return bit, nil
}

// Bit returns the bit index for name.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.bits[name]
	return bit, ok
}

// Name returns the capability registered at bit.
func (r *Registry) Name(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if bit < 0 || bit >= len(r.names) {
		return "", false
	}
	return r.names[bit], true
}

// Mask resolves names into a mask. Every name must be registered.
func (r *Registry) Mask(names ...string) (Mask64, error) {
	var m Mask64
	for _, name := range names {
		bit, ok := r.Bit(name)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrCapabilityUnknown, name)
		}
		m.Set(bit)
	}
	return m, nil
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
