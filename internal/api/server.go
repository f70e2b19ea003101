// Package api provides the HTTP API server and handlers for the library lending service.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/libraryhub/library-server/internal/http/response"
	"github.com/libraryhub/library-server/internal/sse"
	"github.com/libraryhub/library-server/internal/store"
)

// Options holds transport settings for NewServer.
type Options struct {
	CORSOrigins    []string
	LendingLimiter *RateLimiter // nil disables rate limiting of borrow and return
	StorageDriver  string       // reported by the health check
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store          *store.Store
	services       *Services
	router         *chi.Mux
	api            huma.API
	logger         *slog.Logger
	sseManager     *sse.Manager
	sseHandler     *sse.Handler
	lendingLimiter *RateLimiter
	storageDriver  string
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		store:          st,
		services:       services,
		router:         chi.NewRouter(),
		logger:         logger,
		sseManager:     sseManager,
		lendingLimiter: opts.LendingLimiter,
		storageDriver:  opts.StorageDriver,
	}

	// chi requires middleware before any route, and humachi.New registers
	// the OpenAPI routes.
	s.setupMiddleware(opts.CORSOrigins)

	humaConfig := huma.DefaultConfig("Library API", "1.0.0")
	humaConfig.Info.Description = "Catalog, lending and reporting for a small library."
	// Bodies are envelopes; no $schema links.
	humaConfig.CreateHooks = nil
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, sseIdentity, logger)
	}

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, used to export the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderUserID, HeaderUserName, HeaderUserRole},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))
	s.router.Use(middleware.Compress(5))
	s.router.Use(identityMiddleware)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, "Method not allowed", s.logger)
	})

	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}

	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerLendingRoutes()
	s.registerAdminRoutes()
}
