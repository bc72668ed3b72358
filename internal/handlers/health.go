package handlers

import (
	"net/http"
	"time"

	"factory-tracker/internal/tracker"
	"factory-tracker/pkg/utils"
)

// Health reports liveness plus a couple of cheap counters
func Health(reg *tracker.Registry, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"drivers": reg.Stats().Total,
			"uptime":  time.Since(started).Round(time.Second).String(),
		})
	}
}
