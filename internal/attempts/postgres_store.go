package attempts

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists login attempts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed login attempt log.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the login_attempts table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS login_attempts (
			id           VARCHAR(36) PRIMARY KEY,
			user_id      VARCHAR(36),
			timestamp    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ip           VARCHAR(45) NOT NULL,
			user_agent   TEXT,
			success      BOOLEAN NOT NULL,
			hour_of_day  SMALLINT NOT NULL CHECK (hour_of_day >= 0 AND hour_of_day <= 23),
			day_of_week  SMALLINT NOT NULL CHECK (day_of_week >= 0 AND day_of_week <= 6)
		);

		CREATE INDEX IF NOT EXISTS idx_login_attempts_recent
			ON login_attempts (timestamp DESC);

		CREATE INDEX IF NOT EXISTS idx_login_attempts_user
			ON login_attempts (user_id, timestamp DESC) WHERE success;

		CREATE INDEX IF NOT EXISTS idx_login_attempts_suspicious
			ON login_attempts (timestamp DESC) WHERE hour_of_day < 6 OR day_of_week >= 5;
	`)
	return err
}

func (s *PostgresStore) Append(ctx context.Context, a *LoginAttempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO login_attempts (id, user_id, timestamp, ip, user_agent, success, hour_of_day, day_of_week)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
	`,
		a.ID,
		a.UserID,
		a.Timestamp,
		a.IP,
		a.UserAgent,
		a.Success,
		a.HourOfDay,
		a.DayOfWeek,
	)
	if err != nil {
		return fmt.Errorf("failed to append login attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, successOnly bool, limit int) ([]*LoginAttempt, error) {
	return s.query(ctx, `
		SELECT id, COALESCE(user_id, ''), timestamp, ip, COALESCE(user_agent, ''), success, hour_of_day, day_of_week
		FROM login_attempts
		WHERE ($1 = false OR success)
		ORDER BY timestamp DESC
		LIMIT $2
	`, successOnly, limit)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int, before *time.Time) ([]*LoginAttempt, error) {
	return s.query(ctx, `
		SELECT id, COALESCE(user_id, ''), timestamp, ip, COALESCE(user_agent, ''), success, hour_of_day, day_of_week
		FROM login_attempts
		WHERE user_id = $1 AND success
		  AND ($2::timestamptz IS NULL OR timestamp < $2)
		ORDER BY timestamp DESC
		LIMIT $3
	`, userID, before, limit)
}

func (s *PostgresStore) ListSuspicious(ctx context.Context, limit int, before *time.Time) ([]*LoginAttempt, error) {
	return s.query(ctx, `
		SELECT id, COALESCE(user_id, ''), timestamp, ip, COALESCE(user_agent, ''), success, hour_of_day, day_of_week
		FROM login_attempts
		WHERE (hour_of_day < $1 OR day_of_week >= $2)
		  AND ($3::timestamptz IS NULL OR timestamp < $3)
		ORDER BY timestamp DESC
		LIMIT $4
	`, NightHourCutoff, WeekendStart, before, limit)
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]*LoginAttempt, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list login attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*LoginAttempt
	for rows.Next() {
		var a LoginAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.Timestamp, &a.IP, &a.UserAgent, &a.Success, &a.HourOfDay, &a.DayOfWeek); err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		a.Timestamp = a.Timestamp.UTC()
		result = append(result, &a)
	}
	return result, rows.Err()
}
