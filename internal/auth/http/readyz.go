package http

import (
	"net/http"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/authsdk"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/httpx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/slogx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe checking the database and, when configured, the redis attempt limiter.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		checks := map[string]string{"database": "ok"}
		status, code := "ok", http.StatusOK

		if err := st.Ping(ctx); err != nil {
			slogx.FromContext(ctx).Warn("readiness: database unavailable", "err", err)
			checks["database"] = "unavailable"
			status, code = "degraded", http.StatusServiceUnavailable
		}

		for name, dep := range deps {
			checks[name] = "ok"
			if err := dep.Ping(ctx); err != nil {
				slogx.FromContext(ctx).Warn("readiness: dependency unavailable", "dependency", name, "err", err)
				checks[name] = "unavailable"
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
