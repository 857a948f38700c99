package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"instagram-unfollower-bot/internal/infra/logging"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// traceID tags each request with a fresh trace id, echoed in X-Trace-ID.
func traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid := uuid.NewString()
		w.Header().Set("X-Trace-ID", tid)
		next.ServeHTTP(w, r.WithContext(logging.WithTraceID(r.Context(), tid)))
	})
}

// accessLog writes one zerolog line per request, carrying the trace id.
func accessLog(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logging.With(r.Context(), logger).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http_request")
		})
	}
}

// requireBearer answers 401 without a bearer token and 403 when accept
// rejects it. With no admin key configured every request is refused.
func requireBearer(apiKey string, logger *zerolog.Logger, accept func(tok string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				logger.Error().Msg("admin api key is not configured")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			tok, ok := bearer(r)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !accept(tok) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireKey admits only the static admin API key.
func RequireKey(apiKey string, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return requireBearer(apiKey, logger, func(tok string) bool { return keyEqual(tok, apiKey) })
}

// RequireAuth admits the admin API key or a token minted by tokens.
func RequireAuth(apiKey string, tokens *TokenIssuer, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return requireBearer(apiKey, logger, func(tok string) bool {
		if keyEqual(tok, apiKey) {
			return true
		}
		_, err := tokens.Verify(tok)
		return err == nil
	})
}

func keyEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// bearer extracts the token of an "Authorization: Bearer <token>" header.
func bearer(r *http.Request) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
