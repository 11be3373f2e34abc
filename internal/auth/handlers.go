package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/sentinel/internal/anomaly"
	"github.com/mbd888/sentinel/internal/attempts"
	"github.com/mbd888/sentinel/internal/logging"
	"github.com/mbd888/sentinel/internal/metrics"
	"github.com/mbd888/sentinel/internal/realtime"
	"github.com/mbd888/sentinel/internal/traces"
	"github.com/mbd888/sentinel/internal/users"
	"github.com/mbd888/sentinel/internal/validation"
)

// Handler wires authentication endpoints to the attempt log and the anomaly
// detector.
type Handler struct {
	manager  *Manager
	attempts attempts.Store
	detector *anomaly.Detector
	trainer  *anomaly.Trainer
	alerts   *realtime.Hub
}

// NewHandler creates the auth HTTP handler. trainer and alerts may be nil
// (tests often run without them).
func NewHandler(m *Manager, log attempts.Store, detector *anomaly.Detector, trainer *anomaly.Trainer, alerts *realtime.Hub) *Handler {
	return &Handler{
		manager:  m,
		attempts: log,
		detector: detector,
		trainer:  trainer,
		alerts:   alerts,
	}
}

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup registers a new account.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	req.Username = validation.SanitizeString(req.Username, validation.MaxUsernameLength)
	if err := validation.ValidateUsername(req.Username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_username", "message": err.Error()})
		return
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_email", "message": err.Error()})
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "weak_password", "message": err.Error()})
		return
	}

	u, err := h.manager.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrEmailTaken), errors.Is(err, users.ErrUsernameTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "already_registered", "message": err.Error()})
		default:
			logging.L(c.Request.Context()).Error("signup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "signup_failed"})
		}
		return
	}

	metrics.SignupsTotal.Inc()
	c.JSON(http.StatusCreated, gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
	})
}

// Login verifies credentials and issues an access token. Every attempt is
// logged and scored; a flagged login still succeeds, it just raises an alert.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "auth.login",
		traces.ClientIP(c.ClientIP()))
	defer span.End()

	u, loginErr := h.manager.Login(ctx, req.Email, req.Password)

	verdict := h.observeAttempt(c, u, loginErr == nil)
	span.SetAttributes(
		traces.LoginSuccess(loginErr == nil),
		traces.AnomalyScore(verdict.Score),
		traces.AnomalyFlagged(verdict.IsAnomaly),
	)
	if u != nil {
		span.SetAttributes(traces.UserID(u.ID))
	}

	if loginErr != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_credentials",
			"message": "incorrect email or password",
		})
		return
	}

	token, expiresAt, err := h.manager.CreateToken(u.Email)
	if err != nil {
		logging.L(ctx).Error("failed to sign token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_signing_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"tokenType":   "bearer",
		"expiresAt":   expiresAt,
	})
}

// observeAttempt records the attempt, scores it, and emits metrics, logs,
// and realtime events. Failures here never affect the login response.
func (h *Handler) observeAttempt(c *gin.Context, u *users.User, success bool) anomaly.Verdict {
	ctx := c.Request.Context()

	userID := ""
	email := ""
	if u != nil {
		userID = u.ID
		email = u.Email
	}

	attempt := attempts.New(userID, c.ClientIP(), c.Request.UserAgent(), success, time.Now())
	if err := h.attempts.Append(ctx, attempt); err != nil {
		logging.L(ctx).Warn("failed to record login attempt", "error", err)
	}

	outcome := "failure"
	if success {
		outcome = "success"
		if h.trainer != nil {
			h.trainer.RecordLogin()
		}
	}
	metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()

	verdict := h.detector.Score(attempt)
	if h.detector.Trained() {
		metrics.AnomalyScore.Observe(verdict.Score)
	}

	if h.alerts != nil {
		h.alerts.BroadcastLogin(map[string]interface{}{
			"userId":  userID,
			"ip":      attempt.IP,
			"success": success,
			"hour":    attempt.HourOfDay,
			"day":     attempt.DayOfWeek,
			"score":   verdict.Score,
			"flagged": verdict.IsAnomaly,
		})
	}

	if verdict.IsAnomaly {
		metrics.AnomaliesFlaggedTotal.Inc()
		logging.L(ctx).Warn("suspicious login detected",
			"user", email,
			"ip", attempt.IP,
			"hour", attempt.HourOfDay,
			"day", attempt.DayOfWeek,
			"score", verdict.Score,
		)
		if h.alerts != nil {
			h.alerts.BroadcastAnomaly(map[string]interface{}{
				"userId": userID,
				"ip":     attempt.IP,
				"hour":   attempt.HourOfDay,
				"day":    attempt.DayOfWeek,
				"score":  verdict.Score,
			})
		}
	}

	return verdict
}
