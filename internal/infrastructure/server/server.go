package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/GriffinCanCode/widgetrelay/backend/internal/api/http"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/api/middleware"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/api/ws"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/frames"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/registry"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/relay"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/upgrade"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/tracing"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	relay   *relay.Relay
	frames  *frames.Directory
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics

	stopPruner context.CancelFunc
	prunerDone chan struct{}
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if cfg.Relay.SendBuffer <= 0 {
		return nil, fmt.Errorf("invalid relay send buffer: %d", cfg.Relay.SendBuffer)
	}
	if logger == nil {
		logger = logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Development)
	}

	logger.Info("Initializing widget relay",
		zap.String("port", cfg.Server.Port),
		zap.String("pages_dir", cfg.Pages.Dir),
		zap.Strings("allowed_origins", cfg.Relay.AllowedOrigins),
	)
	if _, err := os.Stat(cfg.Pages.Dir); err != nil {
		logger.Warn("Pages directory unavailable", zap.String("dir", cfg.Pages.Dir), zap.Error(err))
	}

	// Metrics first, every component reports into them
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(reg)

	tracer := tracing.New("widget-relay", logger.Component("tracing"))

	directory := frames.NewDirectory()
	rel := relay.New(registry.New(), directory, logger.Component("relay")).WithMetrics(metrics)
	upgrader := upgrade.New(logger.Component("upgrade")).
		WithRegistrar(directory).
		WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.CORSFromOrigins(cfg.Relay.AllowedOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := httpapi.NewHandlers(rel, directory, upgrader, cfg.Pages.Dir, logger.Component("http")).
		WithMetrics(metrics)
	wsHandler := ws.NewHandler(rel, directory, cfg.Relay, logger.Component("ws")).
		WithMetrics(metrics)

	// Widget documents and assets
	router.Static("/widgets", cfg.Pages.WidgetsDir)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Host pages, upgraded on every request
	router.GET("/pages/*path", handlers.Page)

	// Inspection
	router.GET("/topics", handlers.Topics)
	router.GET("/frames", handlers.Frames)

	// WebSocket
	router.GET("/relay", wsHandler.HandleWidget)
	router.GET("/host", wsHandler.HandleHost)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	router.GET("/metrics/json", handlers.Stats)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router: router,
		httpSrv: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		relay:      rel,
		frames:     directory,
		tracer:     tracer,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
		stopPruner: cancel,
		prunerDone: make(chan struct{}),
	}
	go s.pruneFrames(ctx)

	logger.Info("Server initialized successfully")
	return s, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown; they close
	// when the process exits or the peer goes away.
	err := s.httpSrv.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to shut down http server", zap.Error(err))
		err = fmt.Errorf("failed to shut down http server: %w", err)
	}

	s.stopPruner()
	<-s.prunerDone
	s.tracer.Close()

	// Sync logger before exit
	s.logger.Sync()

	return err
}

// pruneFrames forgets frames from served pages that no widget ever bound to
func (s *Server) pruneFrames(ctx context.Context) {
	defer close(s.prunerDone)

	ttl := s.config.Relay.FrameTTL
	if ttl <= 0 {
		return
	}
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.frames.Prune(now.Add(-ttl)); n > 0 {
				s.logger.Debug("Pruned stale frames", zap.Int("count", n))
			}
		}
	}
}
