// Package server provides HTTP server initialization and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"neuroforge/src/app/http/handler"
	"neuroforge/src/app/http/response"
	"neuroforge/src/app/middleware"
	"neuroforge/src/app/realtime"
	"neuroforge/src/core/ports"
	"neuroforge/src/core/usecase"
	"neuroforge/src/infra/config"
	"neuroforge/src/infra/logger"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg      *config.Config
	log      *slog.Logger
	router   *gin.Engine
	http     *http.Server
	sessions *usecase.SessionService

	// Handlers
	healthHandler  *handler.HealthHandler
	gameHandler    *handler.GameHandler
	profileHandler *handler.ProfileHandler
	sessionHandler *handler.SessionHandler
}

// New creates a new Server with all dependencies wired up. Extra session options
// (clock, scheduler) are for tests.
func New(cfg *config.Config, log *slog.Logger, profiles ports.ProfileRepository, opts ...usecase.SessionOption) *Server {
	// Set Gin mode based on log level
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	router := gin.New()

	hub := realtime.NewHub(logger.WithComponent(log, "realtime"), cfg.Server.AllowedOrigin)

	// Create services
	sessionOpts := append([]usecase.SessionOption{
		usecase.WithPublisher(hub),
		usecase.WithIdleTTL(cfg.Game.SessionIdleTTL),
	}, opts...)
	sessionService := usecase.NewSessionService(profiles, logger.WithComponent(log, "sessions"), sessionOpts...)
	profileService := usecase.NewProfileService(profiles, logger.WithComponent(log, "profiles"), cfg.Game.StartingElo)
	healthService := usecase.NewHealthService(log, profiles, sessionService)

	s := &Server{
		cfg:            cfg,
		log:            log,
		router:         router,
		sessions:       sessionService,
		healthHandler:  handler.NewHealthHandler(healthService),
		gameHandler:    handler.NewGameHandler(sessionService),
		profileHandler: handler.NewProfileHandler(profileService),
		sessionHandler: handler.NewSessionHandler(sessionService, hub, log),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	// Order matters: Recovery should be first to catch all panics
	s.router.Use(middleware.Recovery(s.log))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORS(s.cfg.Server.AllowedOrigin))
	s.router.Use(middleware.Player())
	s.router.Use(middleware.Logging(s.log))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check endpoints
	s.router.GET("/health", s.healthHandler.Health)
	s.router.GET("/health/detailed", s.healthHandler.DetailedHealth)

	// API v1 routes
	v1 := s.router.Group("/v1")
	{
		v1.GET("/games", s.gameHandler.List)

		// Profiles need a player id
		profiles := v1.Group("/profiles", middleware.RequirePlayer())
		profiles.POST("", s.profileHandler.Register)
		profiles.GET("/me", s.profileHandler.Me)
		profiles.GET("/me/matches", s.profileHandler.Matches)
		profiles.POST("/me/elo", s.profileHandler.BuyElo)

		// Sessions; guests may play without X-User-Id
		v1.POST("/sessions", s.sessionHandler.Create)
		v1.GET("/sessions/:session_id", s.sessionHandler.Get)
		v1.POST("/sessions/:session_id/start", s.sessionHandler.Start)
		v1.POST("/sessions/:session_id/answers", s.sessionHandler.Answer)
		v1.POST("/sessions/:session_id/finalize", s.sessionHandler.Finalize)
		v1.DELETE("/sessions/:session_id", s.sessionHandler.Discard)
		v1.GET("/sessions/:session_id/events", s.sessionHandler.Events)
	}

	// Handle 404
	s.router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "The requested resource was not found", middleware.GetRequestID(c))
	})
}

// setupHTTPServer configures the underlying HTTP server.
func (s *Server) setupHTTPServer() {
	s.http = &http.Server{
		Addr:        s.cfg.Server.Addr(),
		Handler:     s.router,
		ReadTimeout: s.cfg.Server.ReadTimeout,
		// No WriteTimeout: it would cut long-lived websocket streams.
		IdleTimeout: 2 * s.cfg.Server.WriteTimeout,
	}
}

// Run starts the HTTP server and the idle-session janitor and blocks until
// shutdown. It handles graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Run() error {
	// Channel to receive shutdown signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	errCh := make(chan error, 1)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go s.sessions.RunJanitor(janitorCtx, s.cfg.Game.JanitorInterval)

	// Start server in goroutine
	go func() {
		s.log.Info("starting HTTP server",
			"addr", s.cfg.Server.Addr(),
		)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-quit:
		s.log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	stopJanitor()
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.log.Info("shutting down server", "timeout", s.cfg.Server.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info("server stopped gracefully")
	return nil
}

// Router returns the Gin router for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Sessions returns the session service for testing.
func (s *Server) Sessions() *usecase.SessionService {
	return s.sessions
}
