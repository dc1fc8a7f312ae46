package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/agentsmonitor/backend/internal/api/http"
	"github.com/agentsmonitor/backend/internal/api/middleware"
	"github.com/agentsmonitor/backend/internal/api/ws"
	"github.com/agentsmonitor/backend/internal/domain/agent"
	"github.com/agentsmonitor/backend/internal/domain/session"
	"github.com/agentsmonitor/backend/internal/domain/terminal"
	"github.com/agentsmonitor/backend/internal/infrastructure/config"
	"github.com/agentsmonitor/backend/internal/infrastructure/monitoring"
	"github.com/agentsmonitor/backend/internal/infrastructure/tracing"
	"github.com/agentsmonitor/backend/internal/infrastructure/webhook"
	"github.com/agentsmonitor/backend/internal/logging"
	"github.com/agentsmonitor/backend/internal/shared/paths"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	httpSrv  *http.Server
	handlers *apihttp.Handlers
	manager  *terminal.Manager
	store    *session.Store
	hub      *ws.Hub
	notifier *webhook.Notifier
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics

	reapStop chan struct{}
	reapDone chan struct{}
	stopOnce sync.Once
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	logger.Info("Initializing AgentsMonitor backend",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
	)

	// Metrics first, other components record into them
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("backend", logger.Logger)

	// Data directory layout
	root := cfg.Storage.DataDir
	if root == "" {
		root, err = paths.AppData()
		if err != nil {
			return nil, fmt.Errorf("resolve data directory: %w", err)
		}
	} else {
		root = paths.ExpandHome(root)
	}
	if err := paths.EnsureLayout(root); err != nil {
		return nil, err
	}
	logger.Info("Data directory ready", zap.String("root", root))

	// Agent table with optional operator overlay
	table, err := agent.LoadTable(paths.AgentsFile(root))
	if err != nil {
		return nil, err
	}
	resolver := agent.NewResolver()
	logger.Info("Agent table loaded", zap.Strings("types", table.Types()))

	// Session record store
	store, err := session.NewStore(paths.SessionsDir(root), logger, metrics)
	if err != nil {
		return nil, err
	}

	// Event fan-out: WebSocket hub plus optional webhook
	hub := ws.NewHub(logger, metrics)
	notifier := webhook.New(cfg.Webhook, logger, metrics)
	if notifier != nil {
		logger.Info("Webhook notifier enabled", zap.String("url", cfg.Webhook.URL))
	}

	// Terminal manager streams PTY output into the hub
	manager := terminal.NewManager(table, resolver, hub, logger).WithMetrics(metrics)
	if cfg.Terminal.RecordTranscripts {
		manager = manager.WithTranscripts(paths.TranscriptsDir(root))
		logger.Info("Transcript recording enabled")
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
	router.Use(middleware.CORS(middleware.CORSFromOrigins(cfg.Server.CORSOrigins)))
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

	// REST surface
	handlers := apihttp.NewHandlers(manager, store, table, resolver, hub, notifier, metrics, logger)
	handlers.Register(router)

	// WebSocket event stream
	router.GET("/stream", hub.HandleConnection)

	// Prometheus exposition
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s := &Server{
		router:   router,
		httpSrv:  &http.Server{Addr: cfg.Server.Host + ":" + cfg.Server.Port, Handler: router},
		handlers: handlers,
		manager:  manager,
		store:    store,
		hub:      hub,
		notifier: notifier,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		reapStop: make(chan struct{}),
		reapDone: make(chan struct{}),
	}
	go s.reapLoop()

	logger.Info("Server initialized successfully")
	return s, nil
}

// Run starts the HTTP server and blocks until Close drains it.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// reapLoop periodically sweeps sessions whose child exited on its own, so a
// crashed agent CLI does not leave a PTY and registry entry behind.
func (s *Server) reapLoop() {
	defer close(s.reapDone)

	interval := s.config.Terminal.ReapInterval
	if interval <= 0 {
		<-s.reapStop
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.reapStop:
			return
		case <-ticker.C:
			s.handlers.Sweep()
		}
	}
}

// Close gracefully shuts down the server: drain HTTP, stop the reaper,
// terminate all sessions, then stop the event fan-out.
func (s *Server) Close() error {
	s.stopOnce.Do(func() {
		s.logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Terminal.ShutdownTimeout)
		defer cancel()

		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Warn("HTTP drain incomplete", zap.Error(err))
		}

		// The reaper must stop before session teardown so a sweep cannot
		// race Terminate over the same registry entries.
		close(s.reapStop)
		<-s.reapDone

		s.manager.Shutdown(ctx)
		s.hub.Stop()
		s.notifier.Close()

		s.logger.Sync()
	})
	return nil
}
