// Package users manages user accounts for the Sentinel service.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mbd888/sentinel/internal/idgen"
)

// Errors
var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

// User is a registered account. PasswordHash is a bcrypt hash and is never
// serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// New builds a User with a fresh ID. Email is normalized to lower case so
// lookups are case-insensitive.
func New(username, email, passwordHash string) *User {
	return &User{
		ID:           idgen.WithPrefix("usr_"),
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
}

// Store persists user accounts.
type Store interface {
	// Create inserts a new user; ErrEmailTaken / ErrUsernameTaken on
	// uniqueness conflicts.
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
