package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/fmbot/internal/config"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP gateway
type Server struct {
	cfg      config.GatewayConfig
	router   *gin.Engine
	sessions Sessions
	uploads  Uploads
}

// NewServer builds the gateway routes. sessions and uploads may be nil.
func NewServer(cfg config.GatewayConfig, handler Handler, outbox *Outbox, sessions Sessions, uploads Uploads) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.Recovery())

	s := &Server{
		cfg:      cfg,
		router:   router,
		sessions: sessions,
		uploads:  uploads,
	}

	if cfg.Token != "" {
		router.Use(AuthMiddleware(cfg.Token))
	} else {
		logrus.Warn("Gateway token not set, API is unauthenticated")
	}

	router.GET("/health", s.health)

	conversations := NewConversationHandler(handler, outbox, sessions)
	api := router.Group("/api/v1/conversations/:conversation")
	{
		api.POST("/events", conversations.PostEvent)
		api.GET("/updates", conversations.GetUpdates)
		api.DELETE("", conversations.DeleteConversation)
	}

	return s
}

// Handler returns the gateway's http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.sessions != nil {
		body["conversations"] = s.sessions.Len()
	}
	if s.uploads != nil {
		body["uploads"] = s.uploads.Active()
	}
	c.JSON(http.StatusOK, body)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("🚀 Gateway listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down gateway: %w", err)
	}
	logrus.Info("Gateway stopped")
	return nil
}
