package permission

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrRoleExists reports a second registration of the same role name.
var ErrRoleExists = errors.New("permission: role already registered")

// RoleManager holds the capability mask of each named role. Freeze builds a
// per-capability index, after which RolesFor takes no lock.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask64
	frozen bool

	// byBit[b] lists the roles granting bit b, sorted by name. Set by Freeze.
	byBit [MaxCapabilities][]string
}

// NewRoleManager returns a role manager resolving capabilities through registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask64),
	}
}

// RegisterRole defines roleName as the union of capabilities.
func (rm *RoleManager) RegisterRole(roleName string, capabilities []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return ErrFrozen
	}
	if roleName == "" {
		return errors.New("permission: role name empty")
	}
	if _, exists := rm.roles[roleName]; exists {
		return fmt.Errorf("%w: %s", ErrRoleExists, roleName)
	}

	mask, err := rm.registry.Mask(capabilities...)
	if err != nil {
		return err
	}
	rm.roles[roleName] = mask
	return nil
}

// Mask returns the capability mask of roleName.
func (rm *RoleManager) Mask(roleName string) (Mask64, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	mask, ok := rm.roles[roleName]
	return mask, ok
}

// Allows reports whether roleName grants capability. Unknown roles and
// capabilities are denied.
func (rm *RoleManager) Allows(roleName, capability string) bool {
	bit, ok := rm.registry.Bit(capability)
	if !ok {
		return false
	}
	mask, ok := rm.Mask(roleName)
	return ok && mask.Has(bit)
}

// RolesFor returns the roles that grant capability, sorted by name. After
// Freeze the returned slice is shared and must not be modified.
func (rm *RoleManager) RolesFor(capability string) []string {
	bit, ok := rm.registry.Bit(capability)
	if !ok {
		return nil
	}

	rm.mu.RLock()
	frozen := rm.frozen
	rm.mu.RUnlock()
	if frozen {
		return rm.byBit[bit]
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.collect(bit)
}

func (rm *RoleManager) collect(bit int) []string {
	out := make([]string, 0, len(rm.roles))
	for name, mask := range rm.roles {
		if mask.Has(bit) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Freeze prevents further role registrations and builds the capability index.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.frozen {
		return
	}
	for bit := 0; bit < rm.registry.Count(); bit++ {
		rm.byBit[bit] = rm.collect(bit)
	}
	rm.frozen = true
}

func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
