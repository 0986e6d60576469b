package authkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DatabaseRevocationRegistry persists revoked identifiers in the revoked_tokens table so
// revocations survive restarts and are shared by every process using the same database.
type DatabaseRevocationRegistry struct {
	db *gorm.DB
}

type revokedTokenRecord struct {
	TokenID       string `gorm:"column:token_id;primaryKey"`
	RevokedAtUnix int64  `gorm:"column:revoked_at_unix;not null"`
}

func (revokedTokenRecord) TableName() string {
	return "revoked_tokens"
}

// NewDatabaseRevocationRegistry migrates the revoked_tokens table and returns the registry.
func NewDatabaseRevocationRegistry(ctx context.Context, db *gorm.DB) (*DatabaseRevocationRegistry, error) {
	if db == nil {
		return nil, errors.New("revocation.database.new: database handle is required")
	}
	if migrateErr := db.WithContext(ctx).AutoMigrate(&revokedTokenRecord{}); migrateErr != nil {
		return nil, fmt.Errorf("revocation.database.migrate: %w", migrateErr)
	}
	return &DatabaseRevocationRegistry{db: db}, nil
}

// Add inserts the identifier, keeping the first revocation timestamp on repeats.
func (registry *DatabaseRevocationRegistry) Add(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return fmt.Errorf("revocation.add.database: %w", ErrEmptyTokenID)
	}
	record := revokedTokenRecord{TokenID: tokenID, RevokedAtUnix: time.Now().UTC().Unix()}
	if err := registry.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return fmt.Errorf("revocation.add.database: %w", err)
	}
	return nil
}

// Contains looks up the identifier by primary key.
func (registry *DatabaseRevocationRegistry) Contains(ctx context.Context, tokenID string) (bool, error) {
	var count int64
	if err := registry.db.WithContext(ctx).Model(&revokedTokenRecord{}).Where("token_id = ?", tokenID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("revocation.contains.database: %w", err)
	}
	return count > 0, nil
}

// Close is a no-op; the database handle is owned by the caller.
func (registry *DatabaseRevocationRegistry) Close() error {
	return nil
}
