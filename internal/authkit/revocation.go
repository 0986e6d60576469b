package authkit

import "context"

// RevocationRegistry holds the identifiers (jti) of tokens that are no longer honored.
// Once added, an identifier is never removed for the lifetime of the registry.
type RevocationRegistry interface {
	// Add records the identifier. Adding an identifier twice is not an error.
	Add(ctx context.Context, tokenID string) error
	// Contains reports whether the identifier was revoked.
	Contains(ctx context.Context, tokenID string) (bool, error)
	// Close releases resources held by the registry.
	Close() error
}
