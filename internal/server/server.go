// Package server exposes exports and stored conversations over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/arran4/chat2png"
	"github.com/arran4/chat2png/internal/config"
	"github.com/arran4/chat2png/internal/metrics"
	"github.com/arran4/chat2png/internal/store"
	"github.com/arran4/chat2png/pkg/logger"
)

const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 2 * time.Minute
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

// Server is the HTTP front end.
type Server struct {
	cfg        *config.Config
	router     *gin.Engine
	httpServer *http.Server
}

// New builds the router. m may be nil to disable /metrics.
func New(cfg *config.Config, r *chat2png.Renderer, st *store.Store, m *metrics.Metrics) *Server {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	s := &Server{cfg: cfg, router: router}
	s.setupRoutes(&handler{renderer: r, store: st}, m)
	return s
}

func (s *Server) setupRoutes(h *handler, m *metrics.Metrics) {
	r := s.router
	r.Use(Recovery())
	r.Use(Logger(s.cfg.Logging.AccessLog))
	if m != nil {
		r.Use(Metrics(m))
	}
	r.Use(RequestID())
	r.Use(ErrorHandler(s.cfg.Server.Debug))
	if s.cfg.Telemetry.Enabled {
		r.Use(otelgin.Middleware(s.cfg.Telemetry.ServiceName))
	}
	if m != nil {
		path := s.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(m.Handler()))
	}

	r.GET("/health", h.health)

	v1 := r.Group("/api/v1")
	v1.Use(BodyLimit(s.cfg.Server.MaxUploadBytes))
	v1.POST("/exports", h.createExport)
	v1.POST("/media", h.uploadMedia)

	if h.store != nil {
		conversations := v1.Group("/conversations")
		{
			conversations.POST("", h.createConversation)
			conversations.GET("", h.listConversations)
			conversations.GET("/:id", h.getConversation)
			conversations.PUT("/:id", h.updateConversation)
			conversations.DELETE("/:id", h.deleteConversation)
			conversations.POST("/:id/export", h.exportConversation)
			conversations.GET("/:id/preview.html", h.previewConversation)
		}
	}
}

// Router returns the gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Address(),
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}
	logger.Info("Starting HTTP server",
		zap.String("address", s.cfg.Server.Address()),
		zap.Bool("debug", s.cfg.Server.Debug),
	)

	errc := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
