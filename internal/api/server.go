package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ochestra-tech/tablescaler/internal/config"
	"github.com/ochestra-tech/tablescaler/internal/optimization"
	"github.com/ochestra-tech/tablescaler/internal/state"
)

// Scaler is the part of the optimizer the API exposes
type Scaler interface {
	RunOnce(ctx context.Context) (*optimization.Report, error)
	Latest() (optimization.HistoryEntry, bool)
	History(limit int) []optimization.HistoryEntry
	Stats(ctx context.Context) (state.RunStats, error)
	Config() config.Config
}

// Server handles the HTTP API for the application
type Server struct {
	router     *gin.Engine
	config     config.APIConfig
	scaler     Scaler
	logger     logrus.FieldLogger
	httpServer *http.Server
}

// NewServer creates a new API server
func NewServer(cfg config.APIConfig, scaler Scaler, logger logrus.FieldLogger) *Server {
	s := &Server{
		config: cfg,
		scaler: scaler,
		logger: logger,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(LoggingMiddleware(s.logger))
	r.Use(CORSMiddleware([]string{"*"}, false))

	r.GET("/healthz", s.handleHealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(AuthMiddleware(s.config.Authentication.JWTKey, s.config.Authentication.Enabled))
	if s.config.RateLimit > 0 {
		api.Use(RateLimitMiddleware(s.config.RateLimit, s.config.RateLimitBurst))
	}
	{
		api.GET("/status", s.getStatus)
		api.GET("/config", s.getConfiguration)
		api.POST("/run", s.triggerRun)

		decisions := api.Group("/decisions")
		{
			decisions.GET("", s.getDecisions)
			decisions.GET("/latest", s.getLatestDecision)
		}
	}

	s.router = r
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving the API
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
