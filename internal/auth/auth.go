// Package auth implements signup, password login, and bearer-token access
// control for the Sentinel API.
//
// Every login attempt, successful or not, is appended to the attempt log and
// scored by the anomaly detector. The verdict is advisory: it drives alerts
// and metrics but never changes the authentication outcome.
package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mbd888/sentinel/internal/users"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveUser       = errors.New("user account is deactivated")
	ErrNoToken            = errors.New("no bearer token provided")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// timingPad is a valid bcrypt hash compared against when the email is
// unknown, so login latency does not reveal whether an account exists.
const timingPad = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Manager handles account creation and credential verification.
type Manager struct {
	users    users.Store
	secret   []byte
	tokenTTL time.Duration
	cost     int
}

// Option configures a Manager.
type Option func(*Manager)

// WithTokenTTL overrides the default access-token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.tokenTTL = ttl }
}

// WithBcryptCost overrides the bcrypt work factor (tests use a low cost).
func WithBcryptCost(cost int) Option {
	return func(m *Manager) { m.cost = cost }
}

// NewManager creates an auth manager signing tokens with the given secret.
func NewManager(store users.Store, secret []byte, opts ...Option) *Manager {
	m := &Manager{
		users:    store,
		secret:   secret,
		tokenTTL: DefaultTokenTTL,
		cost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Signup registers a new account with a bcrypt-hashed password.
func (m *Manager) Signup(ctx context.Context, username, email, password string) (*users.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return nil, err
	}

	u := users.New(username, email, string(hash))
	if err := m.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials. Unknown email and wrong password both return
// ErrInvalidCredentials; a deactivated account returns ErrInactiveUser.
func (m *Manager) Login(ctx context.Context, email, password string) (*users.User, error) {
	u, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		// Burn a comparison anyway to keep timing uniform.
		_ = bcrypt.CompareHashAndPassword([]byte(timingPad), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return u, nil
}
