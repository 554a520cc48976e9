package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/GregMSThompson/utilization-pilot/internal/handlers"
)

type Middlewares struct {
	Logger      func(http.Handler) http.Handler
	Auth        func(http.Handler) http.Handler
	RateLimit   func(http.Handler) http.Handler
	IPRateLimit func(http.Handler) http.Handler
}

func NewRouter(deps *handlers.Deps, mw Middlewares, corsOrigins []string) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(mw.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		deps.ResponseHandler.WriteError(w, req, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		deps.ResponseHandler.WriteError(w, req, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	hh := handlers.NewHealthHandlers(deps)
	ush := handlers.NewUserHandlers(deps)
	ph := handlers.NewPlaidHandlers(deps)
	ah := handlers.NewAccountHandlers(deps)
	dh := handlers.NewDashboardHandlers(deps)
	adh := handlers.NewAdvisorHandlers(deps)

	// public
	r.Get("/health", hh.Health)
	r.With(mw.RateLimit).Post("/webhook", ph.Webhook)

	// protected
	r.Group(func(r chi.Router) {
		r.Use(mw.IPRateLimit)
		r.Use(mw.Auth)
		r.Use(mw.RateLimit)

		r.Mount("/users", ush.UserRoutes())

		r.Get("/link-token", ph.CreateLinkToken)
		r.Post("/exchange-token", ph.ExchangeToken)
		r.Post("/sync", ph.Sync)
		r.Mount("/banks", ph.BankRoutes())

		r.Mount("/accounts", ah.AccountRoutes())

		r.Mount("/dashboard", dh.DashboardRoutes())
		r.Post("/update-targets", dh.UpdateTargets)

		r.Mount("/advisor", adh.AdvisorRoutes())
	})

	return r
}
