package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

// RequestRecorder persists one row of the request log.
type RequestRecorder interface {
	CreateRequest(ctx context.Context, req models.Request) error
}

// RequestTracker stores request metrics through a RequestRecorder.
type RequestTracker struct {
	recorder RequestRecorder
	timeout  time.Duration
}

// NewRequestTracker creates a new request tracker middleware.
func NewRequestTracker(recorder RequestRecorder) *RequestTracker {
	return &RequestTracker{recorder: recorder, timeout: 5 * time.Second}
}

// Middleware returns an HTTP middleware that tracks request metrics. Paths
// only, never query strings, end up in the log.
func (rt *RequestTracker) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			entry := models.Request{
				Method:         r.Method,
				Endpoint:       r.URL.Path,
				StatusCode:     rw.statusCode,
				ResponseTimeMs: int(time.Since(start).Milliseconds()),
				RequestID:      chimiddleware.GetReqID(r.Context()),
			}

			// Track the request asynchronously to avoid blocking
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), rt.timeout)
				defer cancel()
				if err := rt.recorder.CreateRequest(ctx, entry); err != nil {
					log.Printf("[tracker] failed to record %s %s: %v", entry.Method, entry.Endpoint, err)
				}
			}()
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
