package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/mdsalahuddin2001/storefront-backend/api/responses"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
)

const readyTimeout = 3 * time.Second

// ReadyCheck is one dependency checked by the readiness endpoint.
type ReadyCheck struct {
	Name   string
	Pinger db.Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency and fails with 503 naming the
// first one that does not answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		status := map[string]string{"status": "ready"}
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			if err := check.Pinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.Name+" unavailable").
						WithDetails(map[string]any{"dependency": check.Name}))
				return
			}
			status[check.Name] = "ok"
		}
		responses.WriteSuccess(w, status)
	}
}
