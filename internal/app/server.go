package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"docquery/internal/api/handlers"
	appMiddleware "docquery/internal/api/middlewares"
	"docquery/internal/config"
	"docquery/internal/core"
	"docquery/internal/core/pipeline"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, dbClient core.DbClient, facade *pipeline.Facade, logger *zap.Logger) *Server {
	queryHandler := handlers.NewQueryHandler(facade, logger)
	healthHandler := handlers.NewHealthHandler(dbClient, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.BearerAuth(cfg.BearerToken))
			protected.Post("/queries", queryHandler.Run)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, logger: logger}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
