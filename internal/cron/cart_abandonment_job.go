package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mdsalahuddin2001/storefront-backend/internal/cart"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
)

const (
	defaultAbandonAfter = 7 * 24 * time.Hour
	defaultBatchSize    = 500
)

type abandonRepository interface {
	MarkAbandoned(ctx context.Context, cutoff, at time.Time, limit int) (int64, error)
}

type CartAbandonmentJobParams struct {
	Logger       *logger.Logger
	Repo         abandonRepository
	AbandonAfter time.Duration
	BatchSize    int
	Now          func() time.Time
}

// CartAbandonmentJob marks active carts that have been idle longer than
// AbandonAfter as abandoned. Abandoned carts are no longer returned to their
// owner, so the next visit starts a fresh cart.
type CartAbandonmentJob struct {
	logg  *logger.Logger
	repo  abandonRepository
	after time.Duration
	batch int
	now   func() time.Time
}

func NewCartAbandonmentJob(params CartAbandonmentJobParams) (*CartAbandonmentJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	after := params.AbandonAfter
	if after <= 0 {
		after = defaultAbandonAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &CartAbandonmentJob{logg: params.Logger, repo: params.Repo, after: after, batch: batch, now: now}, nil
}

var _ abandonRepository = (*cart.Repository)(nil)

func (j *CartAbandonmentJob) Name() string { return "cart_abandonment" }

func (j *CartAbandonmentJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.after)

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		changed, err := j.repo.MarkAbandoned(ctx, cutoff, now, j.batch)
		if err != nil {
			return fmt.Errorf("mark abandoned carts: %w", err)
		}
		total += changed
		if changed < int64(j.batch) {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"abandoned": total,
		"cutoff":    cutoff,
	})
	j.logg.Info(logCtx, "cron.cart_abandonment.completed")
	return nil
}
