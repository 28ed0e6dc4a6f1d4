package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/absolutastore/storefront-backend/api/controllers"
	webhookcontrollers "github.com/absolutastore/storefront-backend/api/controllers/webhooks"
	"github.com/absolutastore/storefront-backend/api/middleware"
	"github.com/absolutastore/storefront-backend/internal/cart"
	"github.com/absolutastore/storefront-backend/internal/catalog"
	"github.com/absolutastore/storefront-backend/internal/checkout"
	"github.com/absolutastore/storefront-backend/internal/payments"
	"github.com/absolutastore/storefront-backend/pkg/config"
	"github.com/absolutastore/storefront-backend/pkg/db"
	"github.com/absolutastore/storefront-backend/pkg/logger"
	"github.com/absolutastore/storefront-backend/pkg/redis"
)

// Dependencies are the wired services the API exposes. Redis, DB and
// Gatherer are optional.
type Dependencies struct {
	Catalog     *catalog.Store
	Carts       *cart.Carts
	Checkout    *checkout.Service
	Preferences *payments.PreferenceService
	Webhooks    *payments.WebhookService
	Redis       *redis.Client
	DB          db.Pinger
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.Window,
		cfg.RateLimit.IPLimit,
		cfg.RateLimit.SessionLimit,
	)
	reloadPolicy := middleware.NewRateLimitPolicy("catalog_reload", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, 0)

	// Idempotent replays and rate limits need a shared store; without redis
	// the routes are served directly.
	idempotent := passThrough
	checkoutLimit := passThrough
	reloadLimit := passThrough
	if deps.Redis != nil {
		idempotent = middleware.Idempotency(deps.Redis, logg)
		checkoutLimit = middleware.RateLimit(checkoutPolicy, deps.Redis, logg)
		reloadLimit = middleware.RateLimit(reloadPolicy, deps.Redis, logg)
	}

	pingers := map[string]controllers.Pinger{}
	if deps.Redis != nil {
		pingers["redis"] = deps.Redis
	}
	if deps.DB != nil {
		pingers["db"] = deps.DB
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// Absent services are handed over as untyped nil so the controllers'
	// unavailable branches see them; a nil pointer would not compare equal.
	preferenceHandler := controllers.PaymentPreference(nil, logg)
	if deps.Preferences != nil {
		preferenceHandler = controllers.PaymentPreference(deps.Preferences, logg)
	}
	webhookHandler := webhookcontrollers.MercadoPagoWebhook(nil, logg)
	if deps.Webhooks != nil {
		webhookHandler = webhookcontrollers.MercadoPagoWebhook(deps.Webhooks, logg)
	}
	checkoutHandler := controllers.CartCheckout(deps.Carts, nil, logg)
	checkoutStatusHandler := controllers.CheckoutStatus(nil, logg)
	if deps.Checkout != nil {
		checkoutHandler = controllers.CartCheckout(deps.Carts, deps.Checkout, logg)
		checkoutStatusHandler = controllers.CheckoutStatus(deps.Checkout, logg)
	}

	// Provider-facing endpoints answer every method themselves.
	r.HandleFunc("/api/v1/payments/preferences", preferenceHandler)
	r.HandleFunc(payments.WebhookPath, webhookHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(deps.Catalog, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(deps.Catalog, logg))
		r.Get("/navigation", controllers.Navigation())
		r.With(reloadLimit).Post("/catalog/reload", controllers.CatalogReload(deps.Catalog, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.CartSession(middleware.CartSessionOptions{
				CookieName: cfg.Cart.SessionCookie,
				MaxAge:     cfg.Cart.SessionMaxAge,
				Secure:     cfg.Cart.SecureCookie || cfg.App.IsProd(),
			}, logg))

			r.Get("/", controllers.CartFetch(deps.Carts, logg))
			r.Delete("/", controllers.CartClear(deps.Carts, logg))
			r.With(idempotent).Post("/items", controllers.CartAddItem(deps.Carts, deps.Catalog, logg))
			r.With(idempotent).Patch("/items/{productId}", controllers.CartChangeQuantity(deps.Carts, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.Carts, logg))
			r.Get("/checkout", checkoutStatusHandler)
			r.With(checkoutLimit, idempotent).Post("/checkout", checkoutHandler)
		})
	})

	return r
}

func passThrough(next http.Handler) http.Handler {
	return next
}
