// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditHTTP "github.com/allisson/fleetvault/internal/audit/http"
	"github.com/allisson/fleetvault/internal/config"
	cryptoHTTP "github.com/allisson/fleetvault/internal/crypto/http"
	"github.com/allisson/fleetvault/internal/metrics"
)

// Server represents the HTTP server
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
	ready  func() bool
}

// NewServer creates a new HTTP server. db may be nil when the service runs on the
// in-memory stores.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		ready:  func() bool { return true },
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the gin engine with middleware and every API route.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	cryptoHandler *cryptoHTTP.CryptoHandler,
	keyHandler *cryptoHTTP.KeyHandler,
	auditHandler *auditHTTP.AuditEventHandler,
	metricsProvider *metrics.Provider,
) {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()
	router.Use(gin.CustomRecovery(recoveryHandler(s.logger)))
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	cryptoGroup := v1.Group("/crypto")
	{
		cryptoGroup.POST("/encrypt", cryptoHandler.EncryptHandler)
		cryptoGroup.POST("/decrypt", cryptoHandler.DecryptHandler)
		cryptoGroup.POST("/objects/encrypt", cryptoHandler.EncryptObjectHandler)
		cryptoGroup.POST("/objects/decrypt", cryptoHandler.DecryptObjectHandler)
	}

	keys := v1.Group("/keys")
	{
		keys.POST("/rotate", keyHandler.RotateHandler)
		keys.GET("/:classification", keyHandler.GetHandler)
	}

	audit := v1.Group("/audit")
	{
		audit.POST("/events", auditHandler.CreateHandler)
		audit.GET("/events", auditHandler.ListHandler)
		audit.GET("/events/:id", auditHandler.GetHandler)
		audit.GET("/events/:id/chain", auditHandler.ChainHandler)
		audit.GET("/events/:id/tamper", auditHandler.TamperHandler)
		audit.DELETE("/events/:id", auditHandler.DeleteHandler)
		audit.GET("/verify", auditHandler.VerifyHandler)
	}

	s.router = router
}

// SetReadinessCheck installs an extra readiness condition, for example that the audit
// chain finished loading.
func (s *Server) SetReadinessCheck(ready func() bool) {
	s.ready = ready
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the service can take traffic.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	if s.db == nil {
		components["database"] = "memory"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness database ping failed", slog.Any("error", err))
			components["database"] = "error"
			ready = false
		} else {
			components["database"] = "ok"
		}
	}

	if s.ready() {
		components["audit_chain"] = "ok"
	} else {
		components["audit_chain"] = "loading"
		ready = false
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
