// Package server provides the HTTP server and routing for FutureCoin.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/futurecoin/futurecoin/internal/config"
	"github.com/futurecoin/futurecoin/internal/marketdata"
	"github.com/futurecoin/futurecoin/internal/modules/auth"
	authhandlers "github.com/futurecoin/futurecoin/internal/modules/auth/handlers"
	"github.com/futurecoin/futurecoin/internal/modules/models"
	"github.com/futurecoin/futurecoin/internal/modules/prediction"
	predictionhandlers "github.com/futurecoin/futurecoin/internal/modules/prediction/handlers"
)

// HealthChecker reports database liveness for the health endpoint.
type HealthChecker interface {
	QuickCheck(ctx context.Context) error
}

// Config holds server dependencies.
type Config struct {
	Log               zerolog.Logger
	Config            *config.Config
	DB                HealthChecker
	Registry          *models.Registry
	Loader            *models.Loader
	Market            *marketdata.Service
	Sessions          *auth.Sessions
	AuthService       *auth.Service
	PredictionService *prediction.Service
	PredictionRepo    *prediction.Repository
}

// Server is the HTTP server.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	cfg      *config.Config
	db       HealthChecker
	registry *models.Registry
	loader   *models.Loader
	market   *marketdata.Service
	sessions *auth.Sessions

	authHandler       *authhandlers.Handler
	predictionHandler *predictionhandlers.Handler
}

// New creates the HTTP server and wires all routes.
func New(cfg Config) *Server {
	s := &Server{
		router:            chi.NewRouter(),
		log:               cfg.Log.With().Str("component", "server").Logger(),
		cfg:               cfg.Config,
		db:                cfg.DB,
		registry:          cfg.Registry,
		loader:            cfg.Loader,
		market:            cfg.Market,
		sessions:          cfg.Sessions,
		authHandler:       authhandlers.NewHandler(cfg.AuthService, cfg.Sessions, cfg.Log),
		predictionHandler: predictionhandlers.NewHandler(cfg.PredictionService, cfg.PredictionRepo, cfg.Log),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router exposes the mux, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/models", s.handleModels)
		r.Get("/models/details", s.handleModels)
		r.Get("/current-price/{symbol}", s.handleCurrentPrice)

		r.Post("/login", s.authHandler.HandleLogin)
		r.Post("/register", s.authHandler.HandleRegister)
		r.Post("/logout", s.authHandler.HandleLogout)
		r.Get("/session", s.authHandler.HandleSession)

		r.Group(func(r chi.Router) {
			r.Use(s.sessions.RequireAuth)
			r.Post("/predict", s.predictionHandler.HandlePredict)
			r.Get("/predictions/history", s.predictionHandler.HandleHistory)
		})

		// Unknown API paths never fall through to the SPA.
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
		})
	})

	s.router.Get("/*", s.handleStatic)
}

// handleStatic serves the frontend build directory with an index.html
// fallback for client-side routes.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if s.cfg.FrontendDir == "" {
		http.NotFound(w, r)
		return
	}

	requested := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")
	path := filepath.Join(s.cfg.FrontendDir, requested)
	if requested != "" && !strings.Contains(requested, "..") {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}
	}

	index := filepath.Join(s.cfg.FrontendDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
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
