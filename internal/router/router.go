package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lunchvote/api/internal/auth"
	"github.com/lunchvote/api/internal/config"
	"github.com/lunchvote/api/internal/handler"
	mw "github.com/lunchvote/api/internal/middleware"
	"github.com/lunchvote/api/internal/phase"
	"github.com/lunchvote/api/internal/state"
	"github.com/lunchvote/api/internal/ws"
)

// New creates a Chi router with all session routes wired up. Reads, votes,
// orders, payment toggles, and phase locks are public (the session pages
// are an open kiosk); settings, roster, catalog, and retention mutations
// sit behind the PIN-issued admin token.
func New(cfg *config.Config, repo *state.Repository, engine *phase.Engine, gate *auth.Gate, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket event stream
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, w, r)
	})

	// Public routes
	authHandler := handler.NewAuthHandler(gate, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	sessionHandler := handler.NewSessionHandler(repo)
	sessionHandler.RegisterRoutes(r)

	votesHandler := handler.NewVotesHandler(repo, engine)
	votesHandler.RegisterRoutes(r)

	ordersHandler := handler.NewOrdersHandler(repo, engine)
	ordersHandler.RegisterRoutes(r)

	phaseHandler := handler.NewPhaseHandler(engine)
	phaseHandler.RegisterRoutes(r)

	summaryHandler := handler.NewSummaryHandler(repo)
	summaryHandler.RegisterRoutes(r)

	// Admin routes (require a PIN-issued token)
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.RequireAdmin(cfg.JWTSecret))
		adminHandler := handler.NewAdminHandler(repo)
		adminHandler.RegisterRoutes(r)
	})

	return r
}
