package api

import (
	"net/http"

	"storefront-backend/internal/api/handlers"
	"storefront-backend/internal/api/middleware"
	"storefront-backend/internal/auth"
	"storefront-backend/internal/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Auth     *handlers.AuthHandler
	Products *handlers.ProductHandler
	Orders   *handlers.OrderHandler
	Tokens   *auth.TokenManager
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	authenticate := middleware.Authenticator(deps.Tokens)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.Auth.Register)
			r.Post("/login", deps.Auth.Login)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", deps.Products.GetAll)
			r.Get("/{id}", deps.Products.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, middleware.RequireAdmin)
				r.Post("/", deps.Products.Create)
				r.Put("/{id}", deps.Products.Update)
				r.Delete("/{id}", deps.Products.Delete)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/", deps.Orders.Create)
				r.Get("/my-orders", deps.Orders.MyOrders)
			})

			r.Group(func(r chi.Router) {
				r.Use(authenticate, middleware.RequireAdmin)
				r.Get("/all", deps.Orders.AllOrders)
				r.Put("/{id}/status", deps.Orders.UpdateStatus)
			})
		})
	})

	return r
}
