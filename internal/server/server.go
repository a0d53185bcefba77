// Package server assembles the HTTP/SSE surface: routes, middleware
// and the progress channel.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
	"github.com/neurabytelabs/modus-forge/internal/server/handler"
	"github.com/neurabytelabs/modus-forge/internal/server/middleware"
	"github.com/neurabytelabs/modus-forge/internal/sse"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// Config wires the API server.
type Config struct {
	Options  *options.ServerRunOptions
	Handler  *handler.Handler
	Progress *sse.Channel
}

// CompletedConfig is the validated server configuration.
type CompletedConfig struct {
	*Config
}

// Complete fills in defaults.
func (c *Config) Complete() CompletedConfig {
	if c.Options == nil {
		c.Options = options.NewServerRunOptions()
	}
	if c.Handler == nil {
		c.Handler = handler.New()
	}
	if c.Progress == nil {
		c.Progress = sse.NewChannel(sse.Options{
			Heartbeat:  c.Options.HeartbeatInterval,
			MaxClients: c.Options.MaxSSEClients,
		})
	}
	return CompletedConfig{c}
}

// Server is the running API surface.
type Server struct {
	engine   *gin.Engine
	opts     *options.ServerRunOptions
	progress *sse.Channel
	http     *http.Server
}

// New builds the Server and installs routes and middleware.
func (c CompletedConfig) New() *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		engine:   engine,
		opts:     c.Options,
		progress: c.Progress,
	}
	s.installMiddleware(c.Handler)
	s.installRoutes(c.Handler)
	return s
}

func (s *Server) installMiddleware(h *handler.Handler) {
	s.engine.Use(gin.Recovery())
	s.engine.Use(middleware.CORS())
	s.engine.Use(h.CountRequests())
	s.engine.Use(middleware.RateLimit(middleware.NewRateLimiter(s.opts.RateLimitMax, s.opts.RateLimitWindow)))
	s.engine.Use(middleware.BearerAuth(&middleware.AuthConfig{Token: s.opts.AuthToken}))
}

func (s *Server) installRoutes(h *handler.Handler) {
	api := s.engine.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/models", h.Models)
		api.POST("/generate", h.Generate)
		api.POST("/validate", h.Validate)
		api.GET("/grimoire", h.GrimoireList)
		api.POST("/grimoire", h.GrimoireSave)
		api.GET("/grimoire/:id", h.GrimoireGet)
		api.GET("/history", h.HistoryList)
		api.GET("/progress", s.progress.Handler())
	}
}

// Engine exposes the underlying gin engine. Used by tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Progress exposes the progress channel so the pipeline can attach.
func (s *Server) Progress() *sse.Channel { return s.progress }

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.opts.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[Server] listening on %s", s.opts.Addr())
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.progress.Close()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
