package users

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/sentinel/internal/attempts"
	"github.com/mbd888/sentinel/internal/pagination"
)

// CurrentUser extracts the authenticated user placed in the gin context by
// the auth middleware.
type CurrentUser func(c *gin.Context) (*User, bool)

// Handler provides HTTP endpoints for the authenticated user.
type Handler struct {
	attempts    attempts.Store
	currentUser CurrentUser
}

// NewHandler creates a user handler. currentUser decouples this package
// from the auth middleware's context keys.
func NewHandler(log attempts.Store, currentUser CurrentUser) *Handler {
	return &Handler{attempts: log, currentUser: currentUser}
}

// Me returns the authenticated user's profile (never the password hash).
func (h *Handler) Me(c *gin.Context) {
	u, ok := h.currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"isActive":  u.IsActive,
		"createdAt": u.CreatedAt,
	})
}

// LoginHistory returns the user's recent successful logins, newest first,
// with cursor pagination.
func (h *Handler) LoginHistory(c *gin.Context) {
	u, ok := h.currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := parseLimit(c.Query("limit"), 10, 100)

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor"})
		return
	}
	var before *time.Time
	if cursor != nil {
		before = &cursor.CreatedAt
	}

	// Fetch one extra row to learn whether another page exists.
	list, err := h.attempts.ListByUser(c.Request.Context(), u.ID, limit+1, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load login history"})
		return
	}

	page, next, hasMore := pagination.ComputePage(list, limit, func(a *attempts.LoginAttempt) (time.Time, string) {
		return a.Timestamp, a.ID
	})

	logins := make([]gin.H, len(page))
	for i, a := range page {
		logins[i] = gin.H{
			"timestamp": a.Timestamp,
			"ip":        a.IP,
			"hour":      a.HourOfDay,
			"day":       a.DayOfWeek,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":       u.ID,
		"username":     u.Username,
		"recentLogins": logins,
		"nextCursor":   next,
		"hasMore":      hasMore,
	})
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
