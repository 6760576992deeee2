// Package user provides account management and credential verification.
package user

import (
	"context"
	"time"
)

// User is a registered account. Email is stored lowercase and unique among
// non-deleted accounts.
type User struct {
	ID           uint      `json:"-"`
	PublicID     string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsDeleted    bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Repository defines storage operations for users.
type Repository interface {
	Create(ctx context.Context, u *User) error

	// FindByEmail matches non-deleted accounts only.
	FindByEmail(ctx context.Context, email string) (*User, error)

	FindByPublicID(ctx context.Context, publicID string) (*User, error)

	Update(ctx context.Context, u *User) error
}

// TokenManager issues and verifies bearer tokens for authenticated sessions.
type TokenManager interface {
	Issue(userPublicID string) (string, time.Time, error)

	// Verify returns the user public id the token was issued for.
	Verify(token string) (string, error)
}
