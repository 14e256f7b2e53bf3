package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/mdsalahuddin2001/storefront-backend/api/routes"
	"github.com/mdsalahuddin2001/storefront-backend/internal/auth"
	"github.com/mdsalahuddin2001/storefront-backend/internal/cart"
	"github.com/mdsalahuddin2001/storefront-backend/internal/categories"
	"github.com/mdsalahuddin2001/storefront-backend/internal/orders"
	"github.com/mdsalahuddin2001/storefront-backend/internal/products"
	"github.com/mdsalahuddin2001/storefront-backend/internal/users"
	"github.com/mdsalahuddin2001/storefront-backend/internal/vendors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/metrics"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/migrate"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured; idempotency keys and auth rate limits are disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	queryMetrics := metrics.NewQueryMetrics(registry)

	services, err := buildServices(cfg, dbClient, queryMetrics, metrics.NewCheckoutMetrics(registry), logg)
	if err != nil {
		logg.Error(ctx, "failed to build services", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Registry:    registry,
			HTTPMetrics: metrics.NewHTTPMetrics(registry),
			Services:    services,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"sqlite": cfg.FeatureFlags.UseSQLite,
	})
	logg.Info(runCtx, "starting api server")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		logg.Info(runCtx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "api server stopped")
}

func buildServices(cfg *config.Config, dbClient *db.Client, queries *metrics.QueryMetrics, checkout *metrics.CheckoutMetrics, logg *logger.Logger) (routes.Services, error) {
	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)

	userService, err := users.NewService(userRepo, dbClient, cfg.Query, queries, cfg.Password.BcryptCost, logg)
	if err != nil {
		return routes.Services{}, err
	}
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:    userRepo,
		UserService: userService,
		JWTConfig:   cfg.JWT,
		Logger:      logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	vendorService, err := vendors.NewService(vendors.NewRepository(conn), userRepo, dbClient, cfg.Query, queries, logg)
	if err != nil {
		return routes.Services{}, err
	}
	categoryService, err := categories.NewService(categories.NewRepository(conn), dbClient, cfg.Query, queries, logg)
	if err != nil {
		return routes.Services{}, err
	}
	productService, err := products.NewService(productRepo, dbClient, cfg.Query, queries, logg)
	if err != nil {
		return routes.Services{}, err
	}
	cartService, err := cart.NewService(cartRepo, productRepo, dbClient, cfg.Query, queries, logg)
	if err != nil {
		return routes.Services{}, err
	}
	orderService, err := orders.NewService(orders.Deps{
		Repo:        orders.NewRepository(conn),
		CartRepo:    cartRepo,
		ProductRepo: productRepo,
		DB:          dbClient,
		Orders:      cfg.Orders,
		Query:       cfg.Query,
		Queries:     queries,
		Checkout:    checkout,
		Logger:      logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:       authService,
		Users:      userService,
		Vendors:    vendorService,
		Products:   productService,
		Categories: categoryService,
		Cart:       cartService,
		Orders:     orderService,
	}, nil
}
