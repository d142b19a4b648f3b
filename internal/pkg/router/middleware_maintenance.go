package router

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/shandysiswandi/authgate/internal/pkg/config"
)

// middlewareMaintenance answers 503 for routes listed in
// app.maintenance.endpoints. Entries are route patterns ("/send-otp") or
// "*" for every route. The list is read per request, so a config reload takes
// effect without a restart.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			endpoints := cfg.GetArray("app.maintenance.endpoints")
			if !slices.Contains(endpoints, "*") && !slices.Contains(endpoints, matchedRoutePath(r)) {
				next.ServeHTTP(w, r)
				return
			}

			if after := cfg.GetInt("app.maintenance.retry_after_seconds"); after > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(after))
			}
			writeJSON(w, errorResponse{Message: "Service is under maintenance."}, http.StatusServiceUnavailable)
		})
	}
}
