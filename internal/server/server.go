package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/auth"
	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/modules/forecast"
	"github.com/aristath/stockfolio/internal/modules/market"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	"github.com/aristath/stockfolio/internal/modules/statistics"
	"github.com/aristath/stockfolio/internal/modules/trading"
)

// Handlers collects the module handlers the server mounts.
type Handlers struct {
	Market     *market.Handlers
	Forecast   *forecast.Handlers
	Portfolio  *portfolio.Handlers
	Statistics *statistics.Handlers
	Trading    *trading.Handlers
}

// Config holds server configuration
type Config struct {
	Port     int
	Log      zerolog.Logger
	DB       *database.DB
	DevMode  bool
	Handlers Handlers
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	db       *database.DB
	handlers Handlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		db:       cfg.DB,
		handlers: cfg.Handlers,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.Header},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		// Market data carries no user scoping.
		r.Route("/stocks", func(r chi.Router) {
			s.handlers.Market.RegisterRoutes(r)
			r.Get("/{symbol}/forecast", s.handlers.Forecast.HandleForecast)
		})

		// Everything below is scoped to the calling user.
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Route("/portfolios", func(r chi.Router) {
				s.handlers.Portfolio.RegisterRoutes(r)
				r.Get("/{id}/statistics", s.handlers.Statistics.HandleStatistics)
				r.Get("/{id}/correlations", s.handlers.Statistics.HandleCorrelations)
			})

			r.Route("/trades", func(r chi.Router) {
				s.handlers.Trading.RegisterRoutes(r)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
