package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StatsSource reports subscriber counts.
type StatsSource interface {
	Stats(ctx context.Context) (total int, notified int, err error)
}

// Server is the admin HTTP surface: health, Prometheus metrics and stats.
type Server struct {
	stats  StatsSource
	apiKey string
	tokens *TokenIssuer
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(stats StatsSource, apiKey string, tokenTTL time.Duration, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "admin_api").Logger()
	return &Server{
		stats:  stats,
		apiKey: apiKey,
		tokens: NewTokenIssuer(apiKey, tokenTTL),
		log:    &l,
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(traceID, accessLog(s.log), middleware.Recoverer, middleware.Timeout(10*time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(RequireKey(s.apiKey, s.log)).Post("/token", s.handleToken)
		r.With(RequireAuth(s.apiKey, s.tokens, s.log)).Get("/stats", s.handleStats)
	})
	return r
}

func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("admin API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, notified, err := s.stats.Stats(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("stats failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"subscribers": total, "notified": notified})
}

func (s *Server) handleToken(w http.ResponseWriter, _ *http.Request) {
	tok, exp, err := s.tokens.Mint()
	if err != nil {
		s.log.Error().Err(err).Msg("mint token failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "expires_at": exp.UTC().Format(time.RFC3339)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
