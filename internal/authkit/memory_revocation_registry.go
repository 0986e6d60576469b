package authkit

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRevocationRegistry is a process-local revocation set guarded by a reader-optimized lock.
type MemoryRevocationRegistry struct {
	mutex   sync.RWMutex
	revoked map[string]struct{}
	closed  bool
}

// NewMemoryRevocationRegistry creates an empty in-memory registry.
func NewMemoryRevocationRegistry() *MemoryRevocationRegistry {
	return &MemoryRevocationRegistry{revoked: make(map[string]struct{})}
}

// Add inserts the identifier.
func (registry *MemoryRevocationRegistry) Add(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return fmt.Errorf("revocation.add.memory: %w", ErrEmptyTokenID)
	}
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if registry.closed {
		return fmt.Errorf("revocation.add.memory: %w", ErrRegistryClosed)
	}
	registry.revoked[tokenID] = struct{}{}
	return nil
}

// Contains reports membership.
func (registry *MemoryRevocationRegistry) Contains(ctx context.Context, tokenID string) (bool, error) {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	if registry.closed {
		return false, fmt.Errorf("revocation.contains.memory: %w", ErrRegistryClosed)
	}
	_, revoked := registry.revoked[tokenID]
	return revoked, nil
}

// Len returns the number of revoked identifiers.
func (registry *MemoryRevocationRegistry) Len() int {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	return len(registry.revoked)
}

// Close clears the set at shutdown; the registry rejects further use.
func (registry *MemoryRevocationRegistry) Close() error {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	registry.revoked = make(map[string]struct{})
	registry.closed = true
	return nil
}
