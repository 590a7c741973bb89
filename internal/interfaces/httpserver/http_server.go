// Package httpserver exposes a loopback HTTP surface for local UIs and
// monitoring: health, Prometheus metrics, connection status and history.
package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat-client/internal/config"
	"github.com/janhq/jan-chat-client/internal/domain/conversation"
	"github.com/janhq/jan-chat-client/internal/domain/status"
	"github.com/janhq/jan-chat-client/internal/interfaces/httpserver/middlewares"
)

// ChatService is the orchestrator surface the server needs.
type ChatService interface {
	Submit(ctx context.Context, text string) (conversation.Message, bool)
	StartNew(ctx context.Context) conversation.Conversation
	LoadHistorical(ctx context.Context, id int64) bool
	History(ctx context.Context) []conversation.Conversation
	Current() conversation.Conversation
	SetLanguage(lang string) error
	Language() string
	ReplyCount() int
	ConnectionStatus() status.ConnectionStatus
}

// HTTPServer is the local status server.
type HTTPServer struct {
	cfg    *config.Config
	engine *gin.Engine
	log    zerolog.Logger
}

// New creates the server and registers its routes.
func New(cfg *config.Config, log zerolog.Logger, svc ChatService) *HTTPServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middlewares.RequestID())
	engine.Use(middlewares.Tracing(cfg.ServiceName))
	engine.Use(middlewares.RequestLoggerWithLogger(log))

	registerCoreRoutes(engine, cfg)
	h := &handler{svc: svc}
	v1 := engine.Group("/v1")
	v1.GET("/status", h.status)
	v1.PUT("/language", h.setLanguage)
	v1.GET("/conversations", h.listConversations)
	v1.POST("/conversations", h.newConversation)
	v1.GET("/conversations/current", h.currentConversation)
	v1.GET("/conversations/:id", h.getConversation)
	v1.POST("/conversations/:id/load", h.loadConversation)
	v1.POST("/messages", h.submit)

	return &HTTPServer{
		cfg:    cfg,
		engine: engine,
		log:    log.With().Str("component", "status-server").Logger(),
	}
}

// Handler exposes the engine for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *HTTPServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.cfg.StatusAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.StatusAddr()).Msg("status server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("status server error")
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down status server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func registerCoreRoutes(engine *gin.Engine, cfg *config.Config) {
	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": cfg.ServiceName,
			"status":  "ok",
		})
	})

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	engine.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
