package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tinytelemetry/livemon/internal/model"
	"github.com/tinytelemetry/livemon/internal/telemetry"
)

// Config configures the metric API server.
type Config struct {
	Addr string
	App  string
	// Reader answers the four metric endpoints.
	Reader model.MetricReader
	// Health backs /api/metrics/health.
	Health model.HealthChecker
	// Telemetry instruments every request when non-nil.
	Telemetry *telemetry.Middleware
	// Gatherer is exposed on /metrics when non-nil.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Server provides the HTTP JSON API consumed by the dashboard.
type Server struct {
	addr      string
	app       string
	reader    model.MetricReader
	health    model.HealthChecker
	telemetry *telemetry.Middleware
	gatherer  prometheus.Gatherer
	logger    *zap.Logger

	server   *http.Server
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer creates a new HTTP API server.
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = fmt.Sprintf("0.0.0.0:%d", model.DefaultAPIPort)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      cfg.Addr,
		app:       cfg.App,
		reader:    cfg.Reader,
		health:    cfg.Health,
		telemetry: cfg.Telemetry,
		gatherer:  cfg.Gatherer,
		logger:    cfg.Logger.With(zap.String("mod", "httpserver")),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Handler builds the gin engine with all routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	// Telemetry wraps recovery so recovered panics are counted and logged as 500s.
	if s.telemetry != nil {
		r.Use(s.telemetry.Handler())
	}
	r.Use(gin.CustomRecovery(s.recover))

	r.GET(model.PathLive, s.handleLive)
	r.GET(model.PathTimeSeries, s.handleTimeSeries)
	r.GET(model.PathGeographic, s.handleGeographic)
	r.GET(model.PathSystem, s.handleSystem)
	r.GET(model.PathHealth, s.handleMetricsHealth)
	r.GET("/health", s.handleHealth)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", s.addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("serve failed", zap.Error(err))
		}
	}()
	s.logger.Info("listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound listen address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleLive(c *gin.Context) {
	data, err := s.reader.Live(c.Request.Context())
	s.respond(c, model.PathLive, data, err)
}

func (s *Server) handleTimeSeries(c *gin.Context) {
	data, err := s.reader.TimeSeries(c.Request.Context())
	s.respond(c, model.PathTimeSeries, data, err)
}

func (s *Server) handleGeographic(c *gin.Context) {
	data, err := s.reader.Geographic(c.Request.Context())
	s.respond(c, model.PathGeographic, data, err)
}

func (s *Server) handleSystem(c *gin.Context) {
	data, err := s.reader.System(c.Request.Context())
	s.respond(c, model.PathSystem, data, err)
}

func (s *Server) respond(c *gin.Context, endpoint string, data any, err error) {
	if err != nil {
		s.logger.Error("failed to fetch metrics", zap.String("endpoint", endpoint), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": model.StatusError, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": model.StatusSuccess, "data": data})
}

func (s *Server) handleMetricsHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "prometheus": "unknown"})
		return
	}
	if err := s.health.Healthy(c.Request.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "prometheus": "disconnected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "prometheus": "connected"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"app":       s.app,
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05"),
	})
}

func (s *Server) recover(c *gin.Context, recovered any) {
	s.logger.Error("handler panic", zap.String("path", c.Request.URL.Path), zap.Any("panic", recovered))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"status": model.StatusError,
		"error":  fmt.Sprint(recovered),
	})
}
