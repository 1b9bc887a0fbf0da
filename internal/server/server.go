package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/logger"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cozy-creator/cropguard/internal/app"
)

// StaticPrefix is where the optional frontend in public_dir is served.
const StaticPrefix = "/app"

type Server struct {
	listenAddr string
	ginEngine  *gin.Engine
	inner      *http.Server
	logger     *zap.Logger
}

func NewServer(app *app.App) (*Server, error) {
	cfg := app.Config()

	gin.SetMode(getGinMode(cfg.Environment))
	r := gin.New()

	r.Use(RequestID())

	// Setup logger middleware
	r.Use(logger.SetLogger(
		logger.WithUTC(true),
		logger.WithSkipPath([]string{"/healthz", "/metrics"}),
		logger.WithLogger(withRequestID),
	))
	r.Use(gin.Recovery())

	// Setup CORS middleware
	r.Use(cors.New(
		cors.Config{
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowOrigins:     []string{"*"},
			AllowHeaders:     []string{"*"},
			ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		},
	))

	r.Use(Instrument(app.Metrics()))

	// Serve static files
	if cfg.PublicDir != "" {
		r.Use(static.Serve(StaticPrefix, static.LocalFile(cfg.PublicDir, true)))
	}

	s := &Server{
		listenAddr: cfg.Address(),
		ginEngine:  r,
		inner: &http.Server{
			Handler:           r,
			Addr:              cfg.Address(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: app.Logger,
	}
	s.SetupRoutes(app)

	return s, nil
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	s.logger.Info("Server listening", zap.String("address", s.listenAddr))

	if err := s.inner.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	s.logger.Info("Stopping server...")

	if err := s.inner.Shutdown(ctx); err != nil {
		return err
	}

	return nil
}

func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

func getGinMode(env string) string {
	switch env {
	case "dev":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
