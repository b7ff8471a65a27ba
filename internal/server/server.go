package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/ahmadawais/wordpress-playground/internal/api/http"
	"github.com/ahmadawais/wordpress-playground/internal/api/middleware"
	"github.com/ahmadawais/wordpress-playground/internal/api/ws"
	"github.com/ahmadawais/wordpress-playground/internal/correlate"
	"github.com/ahmadawais/wordpress-playground/internal/dispatch"
	"github.com/ahmadawais/wordpress-playground/internal/domain/instance"
	"github.com/ahmadawais/wordpress-playground/internal/gateway"
	"github.com/ahmadawais/wordpress-playground/internal/infrastructure/config"
	"github.com/ahmadawais/wordpress-playground/internal/infrastructure/logging"
	"github.com/ahmadawais/wordpress-playground/internal/infrastructure/monitoring"
	"github.com/ahmadawais/wordpress-playground/internal/infrastructure/tracing"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	gateway   *gateway.Gateway
	instances *instance.Manager
	registry  *dispatch.Registry
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
	httpSrv   *http.Server
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Initializing playground gateway",
		zap.String("port", cfg.Server.Port),
		zap.Duration("reply_timeout", cfg.Gateway.ReplyTimeout),
		zap.Strings("script_suffixes", cfg.Gateway.ScriptSuffixes),
	)

	// Initialize metrics first (needed by other components). Each server
	// carries its own registry so tests can construct servers freely.
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(promReg)

	// Initialize tracing
	tracer := tracing.New("gateway", logger.Logger)

	// Core routing machinery
	correlator := correlate.New()
	inbound := correlate.NewBus()
	registry := dispatch.NewRegistry()
	dispatcher := dispatch.NewDispatcher(registry, correlator, logger)
	instances := instance.NewManager()

	gw := gateway.New(dispatcher, correlator, inbound, logger).
		WithPolicy(gateway.DefaultPolicy(cfg.Gateway.ScriptSuffixes)).
		WithTimeout(cfg.Gateway.ReplyTimeout).
		WithMaxBodyMemory(cfg.Gateway.MaxBodyMemory).
		WithMetrics(metrics)
	if cfg.Gateway.Upstream != "" {
		gw.WithPassthrough(gateway.NewPassthrough(cfg.Gateway.Upstream))
		logger.Info("Passthrough upstream configured", zap.String("upstream", cfg.Gateway.Upstream))
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
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

	// The interception layer sees every request; unscoped traffic falls
	// through to the routes and static handler below.
	router.Use(gw.Handler())

	// Create handlers
	handlers := apihttp.NewHandlers(instances, registry, metrics)
	wsHandler := ws.NewHandler(registry, inbound, instances, logger).WithMetrics(metrics)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Instance management
	router.POST("/instances", handlers.CreateInstance)
	router.GET("/instances", handlers.ListInstances)
	router.GET("/instances/:scope", handlers.GetInstance)
	router.DELETE("/instances/:scope", handlers.DeleteInstance)

	// Engine socket
	router.GET("/ws", wsHandler.HandleConnection)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	// Native handling: everything the gateway leaves alone is served
	// from the static directory.
	static := http.FileServer(http.Dir(cfg.Gateway.StaticDir))
	router.NoRoute(func(c *gin.Context) {
		static.ServeHTTP(c.Writer, c.Request)
	})

	// Claim contexts that connected before this point.
	gw.Activate()

	logger.Info("Gateway initialized successfully")

	return &Server{
		router:    router,
		gateway:   gw,
		instances: instances,
		registry:  registry,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}, nil
}

// Router exposes the gin engine; integration tests serve it directly.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down gateway...")

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
			return err
		}
	}

	_ = s.logger.Sync()
	return nil
}
