package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mdsalahuddin2001/storefront-backend/api/controllers"
	cartcontrollers "github.com/mdsalahuddin2001/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/mdsalahuddin2001/storefront-backend/api/controllers/orders"
	"github.com/mdsalahuddin2001/storefront-backend/api/middleware"
	"github.com/mdsalahuddin2001/storefront-backend/internal/auth"
	"github.com/mdsalahuddin2001/storefront-backend/internal/cart"
	"github.com/mdsalahuddin2001/storefront-backend/internal/categories"
	"github.com/mdsalahuddin2001/storefront-backend/internal/orders"
	"github.com/mdsalahuddin2001/storefront-backend/internal/products"
	"github.com/mdsalahuddin2001/storefront-backend/internal/users"
	"github.com/mdsalahuddin2001/storefront-backend/internal/vendors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/metrics"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/redis"
)

// Services groups the domain services exposed over HTTP.
type Services struct {
	Auth       auth.Service
	Users      users.Service
	Vendors    vendors.Service
	Products   products.Service
	Categories categories.Service
	Cart       cart.Service
	Orders     orders.Service
}

// Deps carries everything NewRouter wires. Redis, Registry and HTTPMetrics
// are optional; without redis the idempotency and rate limit middlewares
// are disabled.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics
	Services    Services
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	svc := deps.Services

	// Interfaces stay untyped nil when redis is off so the middlewares can
	// detect it.
	var (
		idempotencyStore redis.IdempotencyStore
		limiterStore     middleware.RateLimitStore
		readyChecks      = []controllers.ReadyCheck{{Name: "db", Pinger: deps.DB}}
	)
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		limiterStore = deps.Redis
		readyChecks = append(readyChecks, controllers.ReadyCheck{Name: "redis", Pinger: deps.Redis})
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyChecks...))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))
	}

	secureCookie := cfg.App.IsProd()
	cartSession := middleware.CartSession(cfg.Cart, secureCookie, logg)
	idempotency := middleware.Idempotency(idempotencyStore, cfg.Redis.IdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, limiterStore, logg)).Post("/register", controllers.AuthRegister(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, limiterStore, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(svc.Products, false, logg))
			r.Get("/{productId}", controllers.ProductGet(svc.Products, false, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList(svc.Categories, logg))
			r.Get("/tree", controllers.CategoryTree(svc.Categories, logg))
			r.Get("/{categoryId}", controllers.CategoryGet(svc.Categories, logg))
		})

		// Guests and signed-in shoppers share the cart and order routes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg), cartSession, idempotency)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(svc.Cart, logg))
				r.Delete("/", cartcontrollers.CartClear(svc.Cart, logg))
				r.Get("/verify", cartcontrollers.CartVerify(svc.Cart, logg))
				r.Post("/items", cartcontrollers.CartAddItem(svc.Cart, logg))
				r.Patch("/items", cartcontrollers.CartUpdateItem(svc.Cart, logg))
				r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(svc.Cart, logg))
				r.Post("/merge", cartcontrollers.CartMerge(svc.Cart, logg))
			})

			r.Post("/checkout", ordercontrollers.Checkout(svc.Orders, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(svc.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Get(svc.Orders, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Post("/vendors", controllers.VendorApply(svc.Vendors, logg))

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", controllers.UserMe(svc.Users, logg))
				r.Patch("/", controllers.UserUpdateMe(svc.Users, logg))
				r.Patch("/change-password", controllers.UserChangePassword(svc.Users, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireRole(logg, enums.UserRoleAdmin),
		)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(svc.Products, true, logg))
			r.Post("/", controllers.AdminProductCreate(svc.Products, logg))
			r.Get("/{productId}", controllers.ProductGet(svc.Products, true, logg))
			r.Patch("/{productId}", controllers.AdminProductUpdate(svc.Products, logg))
			r.Delete("/{productId}", controllers.AdminProductDelete(svc.Products, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.AdminCategoryCreate(svc.Categories, logg))
			r.Patch("/{categoryId}", controllers.AdminCategoryUpdate(svc.Categories, logg))
			r.Delete("/{categoryId}", controllers.AdminCategoryDelete(svc.Categories, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminUserList(svc.Users, logg))
			r.Post("/", controllers.AdminUserCreate(svc.Users, logg))
			r.Get("/{userId}", controllers.AdminUserGet(svc.Users, logg))
			r.Patch("/{userId}", controllers.AdminUserUpdate(svc.Users, logg))
			r.Delete("/{userId}", controllers.AdminUserDelete(svc.Users, logg))
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", controllers.AdminVendorList(svc.Vendors, logg))
			r.Get("/{vendorId}", controllers.AdminVendorGet(svc.Vendors, logg))
			r.Patch("/{vendorId}", controllers.AdminVendorUpdate(svc.Vendors, logg))
			r.Delete("/{vendorId}", controllers.AdminVendorDelete(svc.Vendors, logg))
			r.Patch("/{vendorId}/status", controllers.AdminVendorUpdateStatus(svc.Vendors, logg))
		})

		r.Get("/carts", cartcontrollers.AdminCartList(svc.Cart, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(svc.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Get(svc.Orders, logg))
			r.Patch("/{orderId}/status", ordercontrollers.AdminUpdateStatus(svc.Orders, logg))
			r.Patch("/{orderId}/payment", ordercontrollers.AdminUpdatePayment(svc.Orders, logg))
		})
	})

	return r
}
