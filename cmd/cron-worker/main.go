package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mdsalahuddin2001/storefront-backend/internal/cart"
	"github.com/mdsalahuddin2001/storefront-backend/internal/cron"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/instance"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/metrics"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/migrate"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/redis"
)

const lockKeyFormat = "sf:cron:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-cron"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-cron",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})

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

	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		lock, err = cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(ctx, "failed to create cron lock", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "redis disabled, cron lock is local to this process")
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	abandonment, err := cron.NewCartAbandonmentJob(cron.CartAbandonmentJobParams{
		Logger:       logg,
		Repo:         cartRepo,
		AbandonAfter: cfg.Cart.AbandonAfter,
		BatchSize:    cfg.Cron.BatchSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart abandonment job", err)
		os.Exit(1)
	}
	purge, err := cron.NewGuestCartPurgeJob(cron.GuestCartPurgeJobParams{
		Logger:    logg,
		DB:        dbClient,
		Repo:      cartRepo,
		Retention: cfg.Cart.GuestRetention,
		BatchSize: cfg.Cron.BatchSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to create guest cart purge job", err)
		os.Exit(1)
	}

	// Abandon first so carts idle past both windows are purged in one cycle.
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(abandonment, purge),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	logg.Info(ctx, "starting cart maintenance worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
