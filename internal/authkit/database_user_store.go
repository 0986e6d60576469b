package authkit

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// DatabaseUserStore persists users using GORM.
type DatabaseUserStore struct {
	db *gorm.DB
}

// NewDatabaseUserStore migrates the users table and returns the store.
func NewDatabaseUserStore(ctx context.Context, db *gorm.DB) (*DatabaseUserStore, error) {
	if db == nil {
		return nil, errors.New("user_store.new: database handle is required")
	}
	if migrateErr := db.WithContext(ctx).AutoMigrate(&User{}); migrateErr != nil {
		return nil, fmt.Errorf("user_store.migrate: %w", migrateErr)
	}
	return &DatabaseUserStore{db: db}, nil
}

// CreateUser inserts a user row. A unique-constraint violation maps to ErrUsernameTaken.
func (store *DatabaseUserStore) CreateUser(ctx context.Context, username string, passwordHash string) (*User, error) {
	user := User{Username: username, PasswordHash: passwordHash}
	if err := store.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("user_store.create: %w", ErrUsernameTaken)
		}
		return nil, fmt.Errorf("user_store.create: %w: %w", ErrPersistence, err)
	}
	return &user, nil
}

// FindByUsername looks a user up through the unique username index.
func (store *DatabaseUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := store.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user_store.find_by_username: %w", ErrUserNotFound)
		}
		return nil, fmt.Errorf("user_store.find_by_username: %w: %w", ErrPersistence, err)
	}
	return &user, nil
}

// FindByID loads a user by primary key.
func (store *DatabaseUserStore) FindByID(ctx context.Context, userID uint) (*User, error) {
	var user User
	if err := store.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user_store.find_by_id: %w", ErrUserNotFound)
		}
		return nil, fmt.Errorf("user_store.find_by_id: %w: %w", ErrPersistence, err)
	}
	return &user, nil
}

// DeleteUser removes a user by primary key.
func (store *DatabaseUserStore) DeleteUser(ctx context.Context, userID uint) error {
	result := store.db.WithContext(ctx).Where("id = ?", userID).Delete(&User{})
	if result.Error != nil {
		return fmt.Errorf("user_store.delete: %w: %w", ErrPersistence, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user_store.delete: %w", ErrUserNotFound)
	}
	return nil
}
