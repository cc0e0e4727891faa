package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kasirpos/kasirpos/internal/auth"
	"github.com/kasirpos/kasirpos/internal/catalog"
	"github.com/kasirpos/kasirpos/internal/company"
	"github.com/kasirpos/kasirpos/internal/customers"
	"github.com/kasirpos/kasirpos/internal/inventory"
	"github.com/kasirpos/kasirpos/internal/printlog"
	reporthttp "github.com/kasirpos/kasirpos/internal/reports/http"
	"github.com/kasirpos/kasirpos/internal/sales"
	"github.com/kasirpos/kasirpos/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthService      *auth.Service
	AuthHandler      *auth.Handler
	CatalogHandler   *catalog.Handler
	InventoryHandler *inventory.Handler
	CustomersHandler *customers.Handler
	SalesHandler     *sales.Handler
	PrintHandler     *printlog.Handler
	CompanyHandler   *company.Handler
	ReportsHandler   *reporthttp.Handler
	UsersHandler     *users.Handler
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountRoutes(r)
		})

		// Everything below requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(params.AuthService))

			params.CatalogHandler.MountRoutes(r)
			params.InventoryHandler.MountRoutes(r)
			params.CustomersHandler.MountRoutes(r)
			params.SalesHandler.MountRoutes(r)
			params.PrintHandler.MountRoutes(r)
			params.CompanyHandler.MountRoutes(r)

			// Owner-only surface.
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireOwner)
				params.ReportsHandler.MountRoutes(r)
				params.UsersHandler.MountRoutes(r)
				params.CompanyHandler.MountOwnerRoutes(r)
			})
		})
	})

	return r
}
