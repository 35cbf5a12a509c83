package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/golfshopapp/teesheet/internal/http/handlers"
	httpmiddleware "github.com/golfshopapp/teesheet/internal/http/middleware"
	"github.com/golfshopapp/teesheet/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	SessionsHandler    *handlers.SessionsHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.SessionsHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Post("/sessions", cfg.SessionsHandler.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", cfg.SessionsHandler.GetSession)
		r.Delete("/", cfg.SessionsHandler.EndSession)
		r.Get("/slots", cfg.SessionsHandler.GetVisibleSlots)
		r.Put("/date", cfg.SessionsHandler.SelectDate)
		r.Put("/filters", cfg.SessionsHandler.SetFilters)
		r.Post("/refresh", cfg.SessionsHandler.Refresh)
		r.Post("/slot", cfg.SessionsHandler.SelectSlot)
		r.Put("/booking", cfg.SessionsHandler.UpdateBooking)
		r.Post("/submit", cfg.SessionsHandler.Submit)
		r.Post("/close", cfg.SessionsHandler.Close)
	})

	return r
}
