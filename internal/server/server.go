// Package server exposes the processing engine over HTTP: synchronous
// session control endpoints plus Server-Sent Events streams for live
// processing progress.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexward/wordflow/internal/engine"
	"github.com/lexward/wordflow/internal/model"
)

// SessionLister is the storage surface the server needs beyond the engine.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]model.ProcessingSession, error)
}

// Config holds HTTP server configuration. When CertFile and KeyFile are both
// set the server speaks TLS.
type Config struct {
	Addr            string
	CertFile        string
	KeyFile         string
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server wires the engine into a gin router.
type Server struct {
	engine   *engine.Engine
	sessions SessionLister
	cfg      Config
	router   *gin.Engine
}

// New creates a server around an engine. lister may be nil, in which case the
// session listing endpoint reports not implemented.
func New(eng *engine.Engine, lister SessionLister, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	s := &Server{
		engine:   eng,
		sessions: lister,
		cfg:      cfg,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the configured gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api/v1")
	{
		api.POST("/process", s.handleProcess)
		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:id", s.handleSessionStatus)
		api.POST("/sessions/:id/resume", s.handleResume)
		api.POST("/sessions/:id/pause", s.handlePause)
		api.POST("/sessions/:id/cancel", s.handleCancel)
		api.POST("/sessions/:id/reset", s.handleReset)
	}

	return router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully. Active
// SSE streams are given ShutdownTimeout to park their sessions.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.router,
	}

	useTLS := s.cfg.CertFile != "" && s.cfg.KeyFile != ""

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.cfg.Addr, "tls", useTLS)
		var err error
		if useTLS {
			err = srv.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	slog.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs one line per request in the application's slog format.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP())
	}
}
