// Package attempts is the append-only log of login attempts.
//
// Every authentication request, successful or not, is recorded here. The
// anomaly detector trains on the most recent successful attempts, and the
// admin API reads the log for audit views. Attempts are immutable once
// appended.
package attempts

import (
	"context"
	"time"

	"github.com/mbd888/sentinel/internal/idgen"
)

// Time-pattern heuristics shared by the admin "suspicious logins" view.
// Hours below NightHourCutoff or days at/after WeekendStart are flagged.
const (
	NightHourCutoff = 6
	WeekendStart    = 5
)

// LoginAttempt records a single authentication request.
type LoginAttempt struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"` // empty for unknown-email failures
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent,omitempty"`
	Success   bool      `json:"success"`
	HourOfDay int       `json:"hourOfDay"` // 0-23, UTC
	DayOfWeek int       `json:"dayOfWeek"` // 0=Monday .. 6=Sunday
}

// New builds a LoginAttempt for the given moment. The hour-of-day and
// day-of-week features are derived in UTC at construction time so that a
// stored attempt scores identically no matter when it is read back.
// Days are numbered with Monday as 0, so Saturday and Sunday are 5 and 6.
func New(userID, ip, userAgent string, success bool, at time.Time) *LoginAttempt {
	at = at.UTC()
	return &LoginAttempt{
		ID:        idgen.WithPrefix("att_"),
		UserID:    userID,
		Timestamp: at,
		IP:        ip,
		UserAgent: userAgent,
		Success:   success,
		HourOfDay: at.Hour(),
		DayOfWeek: (int(at.Weekday()) + 6) % 7,
	}
}

// Suspicious reports whether the attempt matches the simple time-pattern
// heuristic (night hours or weekend) used by the admin audit view. The
// trained model is the real detector; this is a cheap fallback filter.
func (a *LoginAttempt) Suspicious() bool {
	return a.HourOfDay < NightHourCutoff || a.DayOfWeek >= WeekendStart
}

// SuspicionReason names which heuristic matched, for operator display.
func (a *LoginAttempt) SuspicionReason() string {
	if a.HourOfDay < NightHourCutoff {
		return "night hours"
	}
	if a.DayOfWeek >= WeekendStart {
		return "weekend"
	}
	return ""
}

// Store persists login attempts. All list methods return attempts ordered
// newest-first. A nil `before` means "from the latest"; a non-nil value
// restricts results to attempts strictly older, for cursor pagination.
type Store interface {
	Append(ctx context.Context, a *LoginAttempt) error
	// ListRecent returns up to limit attempts, optionally successful only.
	ListRecent(ctx context.Context, successOnly bool, limit int) ([]*LoginAttempt, error)
	// ListByUser returns up to limit successful attempts for one user.
	ListByUser(ctx context.Context, userID string, limit int, before *time.Time) ([]*LoginAttempt, error)
	// ListSuspicious returns up to limit attempts matching the night/weekend
	// heuristic.
	ListSuspicious(ctx context.Context, limit int, before *time.Time) ([]*LoginAttempt, error)
}
