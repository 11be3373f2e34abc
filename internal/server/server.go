// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mbd888/sentinel/internal/admin"
	"github.com/mbd888/sentinel/internal/anomaly"
	"github.com/mbd888/sentinel/internal/attempts"
	"github.com/mbd888/sentinel/internal/auth"
	"github.com/mbd888/sentinel/internal/config"
	"github.com/mbd888/sentinel/internal/health"
	"github.com/mbd888/sentinel/internal/idgen"
	"github.com/mbd888/sentinel/internal/logging"
	"github.com/mbd888/sentinel/internal/metrics"
	"github.com/mbd888/sentinel/internal/ratelimit"
	"github.com/mbd888/sentinel/internal/realtime"
	"github.com/mbd888/sentinel/internal/retry"
	"github.com/mbd888/sentinel/internal/security"
	"github.com/mbd888/sentinel/internal/users"
	"github.com/mbd888/sentinel/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	users        users.Store
	attempts     attempts.Store
	authMgr      *auth.Manager
	detector     *anomaly.Detector
	trainer      *anomaly.Trainer
	realtimeHub  *realtime.Hub
	rateLimiter  *ratelimit.Limiter
	healthReg    *health.Registry
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection; the database may still be coming up alongside us
		if err := retry.Do(ctx, 5, 500*time.Millisecond, db.Ping); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		userStore := users.NewPostgresStore(db)
		if err := userStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate user store", "error", err)
		}
		s.users = userStore

		attemptStore := attempts.NewPostgresStore(db)
		if err := attemptStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate attempt store", "error", err)
		}
		s.attempts = attemptStore
	} else {
		s.users = users.NewMemoryStore()
		s.attempts = attempts.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Auth manager
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		// Validate() rejects this in production; dev gets an ephemeral secret
		jwtSecret = idgen.Hex(32)
		s.logger.Warn("JWT_SECRET not set, using ephemeral secret (tokens won't survive restarts)")
	}
	s.authMgr = auth.NewManager(s.users, []byte(jwtSecret), auth.WithTokenTTL(cfg.TokenTTL))

	// Anomaly detector and its training lifecycle
	s.detector = anomaly.NewDetector(anomaly.Options{
		Contamination: cfg.Contamination,
		TreeCount:     cfg.TreeCount,
		SubsampleSize: cfg.SubsampleSize,
		Seed:          cfg.Seed,
	})
	s.trainer = anomaly.NewTrainer(s.detector, s.attempts, anomaly.TrainerConfig{
		HistorySize:     cfg.HistorySize,
		RetrainInterval: cfg.RetrainInterval,
		RetrainEvery:    cfg.RetrainEvery,
	}, s.logger)
	s.logger.Info("anomaly detection enabled",
		"contamination", cfg.Contamination,
		"trees", cfg.TreeCount,
	)

	// Create realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(s.logger)
	s.logger.Info("realtime streaming enabled")

	// Health checkers
	s.healthReg = health.NewRegistry()
	s.healthReg.Register("database", func(ctx context.Context) health.Status {
		if s.db == nil {
			return health.Status{Name: "database", Healthy: true, Detail: "in-memory"}
		}
		if err := s.db.PingContext(ctx); err != nil {
			return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
		}
		return health.Status{Name: "database", Healthy: true}
	})
	s.healthReg.Register("detector", func(ctx context.Context) health.Status {
		// An untrained detector fails open, so it never degrades the service
		if !s.detector.Trained() {
			return health.Status{Name: "detector", Healthy: true, Detail: "untrained (fail-open)"}
		}
		return health.Status{Name: "detector", Healthy: true, Detail: "trained"}
	})

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitPerMinute > 0 {
		rlCfg.RequestsPerMinute = s.cfg.RateLimitPerMinute
		if burst := s.cfg.RateLimitPerMinute / 10; burst > rlCfg.BurstSize {
			rlCfg.BurstSize = burst
		}
	}
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.Hex(16)
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// requireAdminSecret guards operator endpoints. In development with no
// ADMIN_SECRET configured, access is open for local testing.
func (s *Server) requireAdminSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AdminSecret == "" {
			if s.cfg.IsProduction() {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "admin endpoints not configured",
				})
				return
			}
			c.Next()
			return
		}

		provided := c.GetHeader("X-Admin-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.cfg.AdminSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "forbidden",
			})
			return
		}
		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// API info
	s.router.GET("/", s.infoHandler)

	// WebSocket for real-time event streaming (logins, anomaly alerts)
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// Authentication (public)
	authHandler := auth.NewHandler(s.authMgr, s.attempts, s.detector, s.trainer, s.realtimeHub)
	s.router.POST("/auth/signup", authHandler.Signup)
	s.router.POST("/auth/login", authHandler.Login)

	// V1 API group (requires bearer token)
	v1 := s.router.Group("/v1")
	v1.Use(auth.Middleware(s.authMgr, s.users))

	userHandler := users.NewHandler(s.attempts, auth.CurrentUser)
	v1.GET("/users/me", userHandler.Me)
	v1.GET("/users/me/logins", userHandler.LoginHistory)

	// Admin endpoints (bearer token + admin secret)
	adminHandler := admin.NewHandler(s.attempts).
		WithDetector(s.detector).
		WithRetrainer(s.trainer).
		WithHubStats(s.realtimeHub)

	adminGroup := v1.Group("")
	adminGroup.Use(s.requireAdminSecret())
	adminHandler.RegisterRoutes(adminGroup)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.healthReg.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"version":   "0.1.0",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Sentinel",
		"description": "Authentication service with login anomaly detection",
		"version":     "0.1.0",
		"detector":    s.detector.Status(),
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Train the detector from recorded history before taking traffic. An empty
	// log is fine; the detector fails open until enough logins accumulate.
	if s.trainer.TrainFromHistory(runCtx) {
		s.realtimeHub.BroadcastDetectorTrained(map[string]interface{}{
			"status": s.detector.Status(),
		})
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Start periodic retrain loop
	go s.trainer.Start(runCtx)

	// Export DB pool stats
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, trainer)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop periodic retrains
	if s.trainer != nil {
		s.trainer.Stop()
		s.logger.Info("trainer stopped")
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}
