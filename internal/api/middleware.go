package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"comicadmin/internal/logging"
	"comicadmin/internal/services"
)

const (
	headerRequestID = "X-Request-ID"
	headerAdminUser = "X-Admin-User"
)

// requestContext attaches the request and user IDs to the request context.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(headerRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)

		ctx := services.WithRequestID(r.Context(), requestID)
		if user := strings.TrimSpace(r.Header.Get(headerAdminUser)); user != "" {
			ctx = services.WithUserID(ctx, user)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// accessLog writes one line per request.
func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			attrs := []logging.Attr{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", rec.status),
				logging.Duration("duration", time.Since(start)),
			}
			log := logging.WithContext(r.Context(), logger)
			if rec.status >= http.StatusInternalServerError {
				attrs = append(attrs,
					logging.String(logging.FieldErrorHint, "see the preceding error for this request_id"),
					logging.String(logging.FieldImpact, "the admin change was not applied"))
				logging.WarnWithContext(log, "request failed", "api_response_failed", attrs...)
				return
			}
			log.Debug("request served", logging.Args(attrs...)...)
		})
	}
}
