// Package server exposes a read-only HTTP API over the bot's live state.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/soundcloud-audio-bot/internal/downloader"
	"github.com/jaki95/soundcloud-audio-bot/internal/history"
	"github.com/jaki95/soundcloud-audio-bot/internal/job"
)

const shutdownTimeout = 10 * time.Second

// StatsSource reports live orchestrator counters
type StatsSource interface {
	Stats() downloader.Stats
}

// HistoryStats aggregates persisted attempts
type HistoryStats interface {
	Stats(ctx context.Context) (history.Stats, error)
}

// ArchiveLister lists archived objects
type ArchiveLister interface {
	List(ctx context.Context) ([]string, error)
}

// Server handles HTTP requests for status and statistics
type Server struct {
	router     *gin.Engine
	attempts   *job.Manager
	live       StatsSource
	history    HistoryStats
	archive    ArchiveLister
	adminToken string
	started    time.Time
}

// Option configures optional data sources
type Option func(*Server)

func WithStatsSource(s StatsSource) Option {
	return func(srv *Server) { srv.live = s }
}

func WithHistory(h HistoryStats) Option {
	return func(srv *Server) { srv.history = h }
}

func WithArchive(a ArchiveLister) Option {
	return func(srv *Server) { srv.archive = a }
}

// WithAdminToken sets the bearer token for admin routes. Without one they
// answer 403.
func WithAdminToken(token string) Option {
	return func(srv *Server) { srv.adminToken = token }
}

// New creates the server; attempts may be nil when attempt tracking is off
func New(attempts *job.Manager, opts ...Option) *Server {
	s := &Server{
		attempts: attempts,
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), requestLogger())
	s.setupRoutes(s.router)
	return s
}

func (s *Server) setupRoutes(router *gin.Engine) {
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	router.GET("/health", s.healthCheck)

	api := router.Group("/api/v1")
	{
		api.GET("/stats", s.getStats)
		api.GET("/attempts", s.listAttempts)
		api.GET("/attempts/:id", s.getAttempt)
		api.GET("/archive", s.requireAdmin(), s.listArchive)
	}
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		slog.Info("Shutting down HTTP server")
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.adminToken == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "admin API disabled"})
			return
		}
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
