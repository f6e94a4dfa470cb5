package handlers

import (
	"context"
	"log"
	"net/http"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health responds with 200 while the database answers and 503 otherwise. A
// nil pinger only reports that the process is up.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				log.Printf("[health] database ping failed: %v", err)
				payload["status"] = "degraded"
				writeJSON(w, http.StatusServiceUnavailable, payload)
				return
			}
		}

		writeJSON(w, http.StatusOK, payload)
	}
}
