// Package http exposes the shop services as a JSON REST API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// Handlers groups everything NewRouter mounts. Health may be nil.
type Handlers struct {
	Cart     *CartHandler
	Orders   *OrdersHandler
	Offers   *OfferHandler
	Products *ProductHandler
	Health   func(ctx context.Context) error
}

func NewRouter(h Handlers, verifier TokenVerifier, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDHeader)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", healthHandler(h.Health))

	auth := AuthMiddleware(verifier)

	r.Route("/cart", func(r chi.Router) {
		r.Use(auth)
		r.Post("/", h.Cart.AddItem)
		r.Get("/", h.Cart.GetCart)
		r.Delete("/", h.Cart.ClearCart)
		r.Get("/count", h.Cart.Count)
		r.Patch("/{id}", h.Cart.UpdateQuantity)
		r.Delete("/{id}", h.Cart.RemoveItem)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(auth)
		r.Post("/", h.Orders.CreateOrder)
		r.Get("/my-orders", h.Orders.ListMyOrders)
		r.Get("/order-id/{orderId}", h.Orders.GetOrderByOrderID)
		r.Get("/{id}", h.Orders.GetOrder)
		r.Get("/{id}/history", h.Orders.History)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", h.Orders.ListOrders)
			r.Get("/stats", h.Orders.Stats)
			r.Patch("/{id}/status", h.Orders.UpdateStatus)
		})
	})

	r.Route("/offer", func(r chi.Router) {
		r.Get("/", h.Offers.List)
		r.Get("/active", h.Offers.ListActive)
		r.Get("/{id}", h.Offers.Get)

		r.Group(func(r chi.Router) {
			r.Use(auth, RequireAdmin)
			r.Post("/", h.Offers.Create)
			r.Put("/{id}", h.Offers.Update)
			r.Delete("/{id}", h.Offers.Delete)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/{id}", h.Products.Get)

		r.Group(func(r chi.Router) {
			r.Use(auth, RequireAdmin)
			r.Post("/", h.Products.Create)
			r.Post("/{id}/stock", h.Products.AdjustStock)
		})
	})

	return otelhttp.NewHandler(r, "shop-api")
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
