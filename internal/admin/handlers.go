package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/sentinel/internal/attempts"
	"github.com/mbd888/sentinel/internal/pagination"
)

// Handler provides admin HTTP endpoints.
type Handler struct {
	attempts  attempts.Store
	detector  DetectorInspector
	retrainer Retrainer
	hub       HubStats
}

// NewHandler creates a new admin handler.
func NewHandler(log attempts.Store) *Handler {
	return &Handler{attempts: log}
}

// WithDetector sets the detector for status reporting.
func (h *Handler) WithDetector(d DetectorInspector) *Handler {
	h.detector = d
	return h
}

// WithRetrainer sets the trainer for on-demand retrains.
func (h *Handler) WithRetrainer(r Retrainer) *Handler {
	h.retrainer = r
	return h
}

// WithHubStats sets the realtime hub for connection statistics.
func (h *Handler) WithHubStats(s HubStats) *Handler {
	h.hub = s
	return h
}

// RegisterRoutes sets up admin routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/admin/attempts", h.listAttempts)
	r.GET("/admin/anomalies", h.listAnomalies)
	r.GET("/admin/detector", h.detectorStatus)
	r.POST("/admin/detector/retrain", h.retrain)
	r.GET("/admin/realtime/stats", h.realtimeStats)
}

// listAttempts returns recent login attempts, newest first.
func (h *Handler) listAttempts(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 50, 500)
	successOnly := c.Query("successOnly") == "true"

	list, err := h.attempts.ListRecent(c.Request.Context(), successOnly, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list attempts", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": list, "count": len(list)})
}

// listAnomalies returns logins matching heuristic suspicion rules (night
// hours or weekend), newest first, with cursor pagination.
func (h *Handler) listAnomalies(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 20, 200)

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor"})
		return
	}
	var before *time.Time
	if cursor != nil {
		before = &cursor.CreatedAt
	}

	list, err := h.attempts.ListSuspicious(c.Request.Context(), limit+1, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list anomalies", "message": err.Error()})
		return
	}

	page, next, hasMore := pagination.ComputePage(list, limit, func(a *attempts.LoginAttempt) (time.Time, string) {
		return a.Timestamp, a.ID
	})

	anomalies := make([]gin.H, len(page))
	for i, a := range page {
		anomalies[i] = gin.H{
			"userId":    a.UserID,
			"timestamp": a.Timestamp,
			"ip":        a.IP,
			"hour":      a.HourOfDay,
			"day":       a.DayOfWeek,
			"reason":    a.SuspicionReason(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"anomalies":  anomalies,
		"count":      len(anomalies),
		"nextCursor": next,
		"hasMore":    hasMore,
	})
}

// detectorStatus reports whether the model is trained and with what.
func (h *Handler) detectorStatus(c *gin.Context) {
	if h.detector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "detector not configured"})
		return
	}
	c.JSON(http.StatusOK, h.detector.Status())
}

// retrain rebuilds the model from recorded login history.
func (h *Handler) retrain(c *gin.Context) {
	if h.retrainer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trainer not configured"})
		return
	}

	trained := h.retrainer.TrainFromHistory(c.Request.Context())
	status := gin.H{"trained": trained}
	if h.detector != nil {
		status["detector"] = h.detector.Status()
	}
	c.JSON(http.StatusOK, status)
}

// realtimeStats reports WebSocket hub statistics.
func (h *Handler) realtimeStats(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime hub not configured"})
		return
	}
	c.JSON(http.StatusOK, h.hub.Stats())
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
