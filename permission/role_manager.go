package permission

import (
	"errors"
	"sync"
)

// RoleManager resolves role names to permission masks. It is configured during
// initialization and frozen before use.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask64
	frozen bool
}

// NewRoleManager creates a role manager over registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask64),
	}
}

// RegisterRole binds roleName to permissionNames. Every permission must
// already be registered.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}
	if roleName == "" {
		return errors.New("role name empty")
	}
	if _, exists := rm.roles[roleName]; exists {
		return errors.New("role already registered")
	}

	var mask Mask64
	for _, perm := range permissionNames {
		bit, ok := rm.registry.Bit(perm)
		if !ok {
			return errors.New("permission not registered: " + perm)
		}
		mask.Set(bit)
	}

	rm.roles[roleName] = mask
	return nil
}

// Resolve returns the permission set of roleName.
func (rm *RoleManager) Resolve(roleName string) (Set, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	mask, ok := rm.roles[roleName]
	if !ok {
		return Set{}, false
	}
	return Set{registry: rm.registry, mask: mask}, true
}

// Freeze prevents further role registration.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of registered roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
