package api

import (
	"crypto/hmac"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// APIKeyMiddleware guards management routes with a shared-secret
// X-API-Key header. Dynamic dispatch routes never pass through it.
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" || apiKey == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized", "X-API-Key header is required")
				return
			}

			if !hmac.Equal([]byte(key), []byte(apiKey)) {
				writeError(w, http.StatusUnauthorized, "Unauthorized", "Invalid API Key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func LoggingMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.statusCode).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
