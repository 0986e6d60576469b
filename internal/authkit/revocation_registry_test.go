package authkit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func registryFactories() []struct {
	name     string
	registry func(t *testing.T) RevocationRegistry
} {
	return []struct {
		name     string
		registry func(t *testing.T) RevocationRegistry
	}{
		{
			name: "memory",
			registry: func(t *testing.T) RevocationRegistry {
				t.Helper()
				return NewMemoryRevocationRegistry()
			},
		},
		{
			name: "sqlite",
			registry: func(t *testing.T) RevocationRegistry {
				t.Helper()
				registry, err := NewDatabaseRevocationRegistry(context.Background(), openTestDatabase(t).DB)
				if err != nil {
					t.Fatalf("failed to create database registry: %v", err)
				}
				return registry
			},
		},
		{
			name: "bolt",
			registry: func(t *testing.T) RevocationRegistry {
				t.Helper()
				registry, err := NewBoltRevocationRegistry(filepath.Join(t.TempDir(), "revoked.db"))
				if err != nil {
					t.Fatalf("failed to create bolt registry: %v", err)
				}
				t.Cleanup(func() { _ = registry.Close() })
				return registry
			},
		},
	}
}

func TestRevocationRegistriesShareSemantics(t *testing.T) {
	t.Parallel()

	for _, testCase := range registryFactories() {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			registry := testCase.registry(t)

			revoked, err := registry.Contains(ctx, "jti-1")
			if err != nil || revoked {
				t.Fatalf("expected unknown jti to be absent, got revoked=%v err=%v", revoked, err)
			}

			if err := registry.Add(ctx, "jti-1"); err != nil {
				t.Fatalf("add failed: %v", err)
			}
			if err := registry.Add(ctx, "jti-1"); err != nil {
				t.Fatalf("second add must be idempotent, got %v", err)
			}

			for attempt := 0; attempt < 3; attempt++ {
				revoked, err = registry.Contains(ctx, "jti-1")
				if err != nil || !revoked {
					t.Fatalf("expected jti-1 to stay revoked, got revoked=%v err=%v", revoked, err)
				}
			}

			revoked, err = registry.Contains(ctx, "jti-2")
			if err != nil || revoked {
				t.Fatalf("expected jti-2 to be absent, got revoked=%v err=%v", revoked, err)
			}

			if err := registry.Add(ctx, ""); !errors.Is(err, ErrEmptyTokenID) {
				t.Fatalf("expected ErrEmptyTokenID, got %v", err)
			}
		})
	}
}

func TestMemoryRevocationRegistryConcurrentAccess(t *testing.T) {
	t.Parallel()

	registry := NewMemoryRevocationRegistry()
	ctx := context.Background()

	var waitGroup sync.WaitGroup
	for writer := 0; writer < 8; writer++ {
		waitGroup.Add(1)
		go func(writer int) {
			defer waitGroup.Done()
			for index := 0; index < 100; index++ {
				tokenID := fmt.Sprintf("jti-%d-%d", writer, index)
				if err := registry.Add(ctx, tokenID); err != nil {
					t.Errorf("add failed: %v", err)
					return
				}
				if revoked, err := registry.Contains(ctx, tokenID); err != nil || !revoked {
					t.Errorf("expected %s revoked immediately after add", tokenID)
					return
				}
			}
		}(writer)
	}
	waitGroup.Wait()

	if registry.Len() != 800 {
		t.Fatalf("expected 800 revoked identifiers, got %d", registry.Len())
	}
}

func TestMemoryRevocationRegistryClose(t *testing.T) {
	t.Parallel()

	registry := NewMemoryRevocationRegistry()
	ctx := context.Background()
	if err := registry.Add(ctx, "jti-1"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := registry.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected registry cleared on close")
	}
	if _, err := registry.Contains(ctx, "jti-1"); !errors.Is(err, ErrRegistryClosed) {
		t.Fatalf("expected ErrRegistryClosed, got %v", err)
	}
	if err := registry.Add(ctx, "jti-2"); !errors.Is(err, ErrRegistryClosed) {
		t.Fatalf("expected ErrRegistryClosed, got %v", err)
	}
}

func TestBoltRevocationRegistrySurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "revoked.db")
	registry, err := NewBoltRevocationRegistry(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := registry.Add(context.Background(), "jti-persisted"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := registry.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := NewBoltRevocationRegistry(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	revoked, err := reopened.Contains(context.Background(), "jti-persisted")
	if err != nil || !revoked {
		t.Fatalf("expected persisted revocation, got revoked=%v err=%v", revoked, err)
	}
}

func TestDatabaseRevocationRegistryRequiresHandle(t *testing.T) {
	t.Parallel()

	if _, err := NewDatabaseRevocationRegistry(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil database handle")
	}
	if _, err := NewBoltRevocationRegistry(" "); err == nil {
		t.Fatalf("expected error for empty bolt path")
	}
}
