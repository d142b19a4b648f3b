package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/authgate/internal/pkg/goerror"
	"github.com/shandysiswandi/authgate/internal/pkg/router"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (healthResponse) Message() string {
	return "Service is healthy."
}

type healthCheck struct {
	name string
	fn   func(context.Context) error
}

func (a *App) healthChecks() []healthCheck {
	checks := []healthCheck{{name: "database", fn: a.dbConn.Ping}}
	if a.cacheConn != nil {
		checks = append(checks, healthCheck{name: "redis", fn: func(ctx context.Context) error {
			return a.cacheConn.Ping(ctx).Err()
		}})
	}

	return checks
}

// health reports readiness of the backing stores. It sits on the allowlist so
// probes do not need a credential.
func (a *App) health(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}

	var errs []error
	for _, check := range a.healthChecks() {
		if err := check.fn(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", "name", check.name, "error", err)
			resp.Checks[check.name] = "down"
			errs = append(errs, fmt.Errorf("%s: %w", check.name, err))
			continue
		}
		resp.Checks[check.name] = "up"
	}

	if len(errs) > 0 {
		return nil, goerror.NewUpstream(errors.Join(errs...))
	}

	return resp, nil
}
