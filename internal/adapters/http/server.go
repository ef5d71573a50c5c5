// Package http serves the quote API over Gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nico-vromans/random-quote-generator/internal/platform/config"
)

// Server owns the Gin engine and the listener of the quote API.
type Server struct {
	engine   *gin.Engine
	srv      *http.Server
	drainFor time.Duration
	logger   *slog.Logger

	ready chan struct{}
	addr  net.Addr
}

// New builds a server from cfg. Routes are added to Engine before Run.
func New(cfg *config.ServerConfig, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(limitBody(cfg.MaxRequestSize))

	return &Server{
		engine: engine,
		srv: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           engine,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		drainFor: cfg.ShutdownTimeout,
		logger:   logger.With(slog.String("component", "http.Server")),
		ready:    make(chan struct{}),
	}
}

// Engine is where routes are registered.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most the configured shutdown timeout. It returns nil after a clean drain.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	s.addr = ln.Addr()
	close(s.ready)

	s.logger.InfoContext(ctx, "serving quote API", slog.String("addr", s.addr.String()))

	served := make(chan error, 1)
	go func() { served <- s.srv.Serve(ln) }()

	select {
	case err := <-served:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.drainFor)
	defer cancel()

	s.logger.InfoContext(ctx, "draining connections", slog.Duration("timeout", s.drainFor))

	if err := s.srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("draining: %w", err)
	}

	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	s.logger.InfoContext(ctx, "quote API stopped")

	return nil
}

// Addr blocks until Run is listening and returns the bound address. Useful
// with port 0.
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.addr
}

func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
