package authkit

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

var revokedTokensBucket = []byte("revoked_tokens")

// BoltRevocationRegistry persists revoked identifiers in a local bbolt file.
type BoltRevocationRegistry struct {
	db *bbolt.DB
}

// NewBoltRevocationRegistry opens (or creates) the bbolt file at path.
func NewBoltRevocationRegistry(path string) (*BoltRevocationRegistry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("revocation.bolt.open: path must be non-empty")
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("revocation.bolt.open: %w", err)
	}
	bucketErr := db.Update(func(tx *bbolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(revokedTokensBucket)
		return createErr
	})
	if bucketErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("revocation.bolt.bucket: %w", bucketErr)
	}
	return &BoltRevocationRegistry{db: db}, nil
}

// Add stores the identifier with its revocation time; existing entries are left untouched.
func (registry *BoltRevocationRegistry) Add(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return fmt.Errorf("revocation.add.bolt: %w", ErrEmptyTokenID)
	}
	err := registry.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(revokedTokensBucket)
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", revokedTokensBucket)
		}
		key := []byte(tokenID)
		if bucket.Get(key) != nil {
			return nil
		}
		value := make([]byte, 8)
		binary.BigEndian.PutUint64(value, uint64(time.Now().UTC().Unix()))
		return bucket.Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("revocation.add.bolt: %w", err)
	}
	return nil
}

// Contains reports whether the identifier is present in the bucket.
func (registry *BoltRevocationRegistry) Contains(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	revoked := false
	err := registry.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(revokedTokensBucket)
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", revokedTokensBucket)
		}
		revoked = bucket.Get([]byte(tokenID)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("revocation.contains.bolt: %w", err)
	}
	return revoked, nil
}

// Close closes the bbolt file.
func (registry *BoltRevocationRegistry) Close() error {
	return registry.db.Close()
}
