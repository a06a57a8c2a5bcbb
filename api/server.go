/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/auth/*          Login, registration, token introspection
  /api/users/*         User management (admin)
  /api/cards/*         Card ledger
  /api/transactions/*  Transaction log and recharge approvals
  /api/meals/*         Meal catalog
  /api/dashboard/*     Role-specific aggregations
  /health              Liveness probe, unauthenticated

ACCESS MODEL:
  Everything under /api except /api/auth requires a bearer token. Role
  gates sit on the mutating/administrative routes; reads are open to any
  authenticated user.

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Authenticate and RequireRole middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/campuscard/server/directory"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Response{Success: true, Message: "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Auth routes; the only unauthenticated part of the API.
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
			r.Post("/logout", h.Logout)
			r.With(h.Authenticate).Get("/me", h.Me)
		})

		// User management, admin only.
		r.Route("/users", func(r chi.Router) {
			r.Use(h.Authenticate)
			r.Use(RequireRole(directory.RoleAdmin))
			r.Get("/", h.ListUsers)
			r.Get("/stats/overview", h.UserStats)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeleteUser)
		})

		// Card ledger.
		r.Route("/cards", func(r chi.Router) {
			r.Use(h.Authenticate)
			r.Get("/", h.ListCards)
			r.Get("/stats/overview", h.CardStats)
			r.Get("/{id}", h.GetCard)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(directory.RoleAdmin, directory.RoleManager))
				r.Post("/", h.CreateCard)
				r.Put("/{id}/balance", h.UpdateBalance)
				r.Put("/{id}/status", h.UpdateCardStatus)
			})
		})

		// Transaction log.
		r.Route("/transactions", func(r chi.Router) {
			r.Use(h.Authenticate)
			r.Get("/", h.ListTransactions)
			r.Get("/stats/overview", h.TransactionStats)
			r.Get("/stats/daily", h.DailyTransactionStats)
			r.Get("/{id}", h.GetTransaction)
			r.Post("/", h.CreateTransaction)

			// Recharge approval is a manager decision.
			r.With(RequireRole(directory.RoleAdmin, directory.RoleManager)).
				Put("/{id}/status", h.UpdateTransactionStatus)
		})

		// Meal catalog.
		r.Route("/meals", func(r chi.Router) {
			r.Use(h.Authenticate)
			r.Get("/", h.ListMeals)
			r.Get("/stats/overview", h.MealStats)
			r.Get("/stats/popular", h.PopularMeals)
			r.Get("/{id}", h.GetMeal)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(directory.RoleAdmin, directory.RoleManager))
				r.Post("/", h.CreateMeal)
				r.Put("/{id}", h.UpdateMeal)
				r.Delete("/{id}", h.DeleteMeal)
				r.Put("/{id}/availability", h.UpdateMealAvailability)
			})
		})

		// Dashboards.
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(h.Authenticate)
			r.With(RequireRole(directory.RoleAdmin)).Get("/admin", h.AdminDashboard)
			r.With(RequireRole(directory.RoleAdmin, directory.RoleManager)).Get("/manager", h.ManagerDashboard)
			r.With(RequireRole(directory.RoleAdmin, directory.RoleCashier)).Get("/cashier", h.CashierDashboard)
			r.Get("/student/{studentId}", h.StudentDashboard)
		})
	})

	return r
}
