package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Handlers groups the resource handlers mounted under /api.
type Handlers struct {
	Products   *ProductHandler
	Users      *UserHandler
	Orders     *OrderHandler
	Cart       *CartHandler
	Categories *CategoryHandler
	Reviews    *ReviewHandler
	Payments   *PaymentHandler
	Shipping   *ShippingHandler
	Analytics  *AnalyticsHandler
}

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// NewRouter builds the HTTP API. The returned handler is traced with otelhttp.
func NewRouter(h Handlers, cfg RouterConfig, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MaxBodySize(cfg.MaxRequestBodySize))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/health", healthHandler(time.Now()))

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", h.Products.Routes)
		r.Route("/users", h.Users.Routes)
		r.Route("/orders", h.Orders.Routes)
		r.Route("/cart", h.Cart.Routes)
		r.Route("/categories", h.Categories.Routes)
		r.Route("/reviews", h.Reviews.Routes)
		r.Route("/payments", h.Payments.Routes)
		r.Route("/shipping", h.Shipping.Routes)
		r.Route("/analytics", h.Analytics.Routes)
	})

	return otelhttp.NewHandler(r, "shop-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}

type healthStatus struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}

func healthHandler(started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, "Service is healthy", healthStatus{
			Status: "ok",
			Uptime: time.Since(started).Seconds(),
		})
	}
}
