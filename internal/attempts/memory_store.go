package attempts

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
// Attempts are kept sorted by timestamp regardless of append order, so the
// newest-first contract matches the Postgres store's ORDER BY.
type MemoryStore struct {
	mu       sync.RWMutex
	attempts []*LoginAttempt
}

// NewMemoryStore creates an in-memory login attempt log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, a *LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	// Attempts almost always arrive in time order, so this walk is short.
	i := len(s.attempts)
	for i > 0 && s.attempts[i-1].Timestamp.After(cp.Timestamp) {
		i--
	}
	s.attempts = append(s.attempts, nil)
	copy(s.attempts[i+1:], s.attempts[i:])
	s.attempts[i] = &cp
	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, successOnly bool, limit int) ([]*LoginAttempt, error) {
	return s.collect(limit, nil, func(a *LoginAttempt) bool {
		return !successOnly || a.Success
	})
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit int, before *time.Time) ([]*LoginAttempt, error) {
	return s.collect(limit, before, func(a *LoginAttempt) bool {
		return a.UserID == userID && a.Success
	})
}

func (s *MemoryStore) ListSuspicious(ctx context.Context, limit int, before *time.Time) ([]*LoginAttempt, error) {
	return s.collect(limit, before, func(a *LoginAttempt) bool {
		return a.Suspicious()
	})
}

func (s *MemoryStore) collect(limit int, before *time.Time, match func(*LoginAttempt) bool) ([]*LoginAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*LoginAttempt
	for i := len(s.attempts) - 1; i >= 0 && len(result) < limit; i-- {
		a := s.attempts[i]
		if before != nil && !a.Timestamp.Before(*before) {
			continue
		}
		if !match(a) {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	return result, nil
}
