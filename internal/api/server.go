package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dynamock/dynamock/internal/config"
	"github.com/dynamock/dynamock/internal/dispatch"
	"github.com/dynamock/dynamock/internal/registry"
	"github.com/dynamock/dynamock/internal/storage"
)

type Server struct {
	cfg    config.ServerConfig
	apiKey string
	store  storage.Storage
	router *chi.Mux
	log    zerolog.Logger
	http   *http.Server
}

func NewServer(cfg config.ServerConfig, apiKey string, store storage.Storage, log zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		apiKey: apiKey,
		store:  store,
		log:    log,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(s.log))
	if s.cfg.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))
	}

	reg := registry.NewService(s.store)
	disp := dispatch.NewDispatcher(s.store)

	epHandler := NewEndpointHandler(reg, disp, s.log)
	mockHandler := NewMockHandler(disp, s.log)

	// Health check — no auth, no store involvement
	r.Get("/health", mockHandler.Health)

	// Management routes, guarded by the API key. Fixed routes win over
	// registered mappings: a mapping for /api/register can never shadow
	// registration itself.
	r.Group(func(r chi.Router) {
		r.Use(APIKeyMiddleware(s.apiKey))

		r.Post("/api/register", epHandler.Register)
		r.Get("/api/endpoints", epHandler.List)
		r.Delete("/api/endpoints/*", epHandler.Delete)
		r.Get("/api/get/*", epHandler.GetByPath)
	})

	// Everything else falls through to dynamic dispatch, any method,
	// unauthenticated. MethodNotAllowed is routed too so a mapping like
	// POST /health stays reachable.
	r.NotFound(mockHandler.Serve)
	r.MethodNotAllowed(mockHandler.Serve)

	return r
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info().Str("addr", addr).Msg("starting HTTP server")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
