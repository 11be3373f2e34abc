package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists user accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed user store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the users table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            VARCHAR(36) PRIMARY KEY,
			username      VARCHAR(50) NOT NULL CONSTRAINT users_username_key UNIQUE,
			email         VARCHAR(255) NOT NULL CONSTRAINT users_email_key UNIQUE,
			password_hash TEXT NOT NULL,
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsActive, u.CreatedAt,
	)
	if err != nil {
		// Map unique-constraint violations onto the store's typed errors.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "users_email_key":
				return ErrEmailTaken
			case "users_username_key":
				return ErrUsernameTaken
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.get(ctx, `WHERE email = LOWER($1)`, email)
}

func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.get(ctx, `WHERE username = $1`, username)
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	return s.get(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) get(ctx context.Context, where string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, is_active, created_at
		FROM users `+where,
		arg,
	)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
