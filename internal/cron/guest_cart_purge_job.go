package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mdsalahuddin2001/storefront-backend/internal/cart"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
)

const defaultGuestRetention = 30 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type GuestCartPurgeJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Repo      *cart.Repository
	Retention time.Duration
	BatchSize int
	Now       func() time.Time
}

// GuestCartPurgeJob deletes abandoned guest carts and their items once the
// retention window has passed. Carts owned by a user are never purged.
type GuestCartPurgeJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      *cart.Repository
	retention time.Duration
	batch     int
	now       func() time.Time
}

func NewGuestCartPurgeJob(params GuestCartPurgeJobParams) (*GuestCartPurgeJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultGuestRetention
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &GuestCartPurgeJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repo,
		retention: retention,
		batch:     batch,
		now:       now,
	}, nil
}

func (j *GuestCartPurgeJob) Name() string { return "guest_cart_purge" }

// Run deletes one batch per transaction until a batch comes back short.
func (j *GuestCartPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			deleted, err = j.repo.WithTx(tx).PurgeAbandonedGuests(ctx, cutoff, j.batch)
			return err
		})
		if err != nil {
			return fmt.Errorf("purge guest carts: %w", err)
		}
		total += deleted
		if deleted < int64(j.batch) {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"purged": total,
		"cutoff": cutoff,
	})
	j.logg.Info(logCtx, "cron.guest_cart_purge.completed")
	return nil
}
