package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careslot/appointment-booking/internal/schedule"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDMiddleware adds a unique request ID to each request context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs each request with method, path, status,
// duration and request ID.
func LoggingMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("request_id", GetRequestID(r.Context())).
				Msg("request")
		})
	}
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

var errMissingActor = errors.New("missing actor headers")

// actorFromRequest reads the authenticated identity the upstream
// gateway forwards. Authentication itself happens there; this service
// only needs who and which role.
func actorFromRequest(r *http.Request) (schedule.Actor, error) {
	id, err := uuid.Parse(r.Header.Get("X-Actor-ID"))
	if err != nil {
		return schedule.Actor{}, errMissingActor
	}
	role := schedule.Role(r.Header.Get("X-Actor-Role"))
	switch role {
	case schedule.RolePatient, schedule.RoleDoctor, schedule.RoleSecretary, schedule.RoleManager, schedule.RoleAdmin:
	default:
		return schedule.Actor{}, errMissingActor
	}
	return schedule.Actor{ID: id, Role: role}, nil
}
