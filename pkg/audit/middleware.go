package audit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// ActorHeader carries the authenticated user set by the fronting proxy.
const ActorHeader = "X-Remote-User"

// writeTimeout bounds the audit write after the response has been served.
const writeTimeout = 5 * time.Second

// responseCapture wraps http.ResponseWriter to capture the status code.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rc *responseCapture) WriteHeader(code int) {
	if !rc.written {
		rc.statusCode = code
		rc.written = true
	}
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if !rc.written {
		rc.statusCode = http.StatusOK
		rc.written = true
	}
	return rc.ResponseWriter.Write(b)
}

// Middleware records one Event per request it wraps, after the handler has
// answered. A failed audit write is logged and never changes the response.
func Middleware(store Appender, cfg *Config, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg == nil || !cfg.Enabled || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()
			capture := &responseCapture{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(capture, r)

			actor := r.Header.Get(ActorHeader)
			if actor == "" {
				actor = "anonymous"
			}
			requestID := middleware.GetReqID(r.Context())

			event := &Event{
				ID:         uuid.New().String(),
				Actor:      actor,
				RequestID:  requestID,
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: capture.statusCode,
				Outcome:    outcomeFromStatus(capture.statusCode),
				DurationMs: time.Since(startTime).Milliseconds(),
				CreatedAt:  startTime.UTC(),
			}

			// The request context may already be canceled once the client has
			// its response.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), writeTimeout)
			defer cancel()
			if err := store.Append(ctx, event); err != nil {
				logger.Error("failed to write audit event", "error", err, "requestID", requestID)
			}
		})
	}
}

// outcomeFromStatus maps HTTP status codes to audit outcomes.
func outcomeFromStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return OutcomeSuccess
	case code >= 400 && code < 500:
		return OutcomeRejected
	default:
		return OutcomeFailure
	}
}
