package authkit

import "context"

// User is a registered account. The password hash never leaves the service.
type User struct {
	ID           uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"column:username;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
}

// TableName pins the users table name.
func (User) TableName() string {
	return "users"
}

// UserStore persists and retrieves credential records.
type UserStore interface {
	CreateUser(ctx context.Context, username string, passwordHash string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, userID uint) (*User, error)
	DeleteUser(ctx context.Context, userID uint) error
}
