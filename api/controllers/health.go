package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/aquafindr/aquafindr-backend/api/responses"
	"github.com/aquafindr/aquafindr-backend/pkg/config"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AquaFindr-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the backing services the API cannot serve without.
// Nil pingers are skipped so partial deployments still report ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}

		w.Header().Set("X-AquaFindr-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
