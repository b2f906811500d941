// Package server exposes the generation gateway and the card service over
// HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nerdneilsfield/inkwash-card/internal/card"
	"github.com/nerdneilsfield/inkwash-card/internal/gateway"
	"github.com/nerdneilsfield/inkwash-card/internal/i18n"
	"go.uber.org/zap"
)

const (
	DefaultBodyLimit = 20 << 20
	shutdownTimeout  = 15 * time.Second
)

type Options struct {
	// BodyLimit caps request bodies in bytes. Photos arrive base64 encoded.
	BodyLimit int64
	// PublicBaseURL, when set, adds a shareUrl to save-card responses.
	PublicBaseURL string
}

type Server struct {
	engine  *gin.Engine
	gateway *gateway.Gateway
	cards   *card.Service
	i18n    *i18n.Manager
	logger  *zap.Logger
	opts    Options
}

func New(gw *gateway.Gateway, cards *card.Service, tr *i18n.Manager, logger *zap.Logger, opts Options) (*Server, error) {
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = DefaultBodyLimit
	}
	if err := registerValidators(); err != nil {
		return nil, err
	}

	s := &Server{
		gateway: gw,
		cards:   cards,
		i18n:    tr,
		logger:  logger.Named("http"),
		opts:    opts,
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(s.accessLog(), s.recovery(), s.language(), cors())

	r.NoMethod(s.methodNotAllowed)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
	})

	api := r.Group("/api")
	{
		post := allowMethods(http.MethodPost, http.MethodOptions)
		api.POST("/generate", post, s.limitBody(), s.handleGenerate)
		api.OPTIONS("/generate", post, preflight)

		api.POST("/save-card", post, s.limitBody(), s.handleSaveCard)
		api.OPTIONS("/save-card", post, preflight)

		get := allowMethods(http.MethodGet, http.MethodOptions)
		api.GET("/get-card", get, s.handleGetCard)
		api.OPTIONS("/get-card", get, preflight)
	}

	r.GET("/healthz", s.handleHealth)
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
