// Package admin serves operational endpoints for the file server on a
// separate address from the file protocol.
package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/always-cache/filehttp/server"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type StatsSource interface {
	Stats() server.Stats
}

type statsResponse struct {
	Active      int64  `json:"active"`
	Served      int64  `json:"served"`
	IdleTimeout string `json:"idleTimeout"`
	Uptime      string `json:"uptime"`
}

// NewRouter returns the admin routes:
//
//	GET /healthz  liveness
//	GET /stats    connection counters as JSON
func NewRouter(src StatsSource, logger zerolog.Logger) http.Handler {
	started := time.Now()
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := src.Stats()
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(statsResponse{
			Active:      stats.Active,
			Served:      stats.Served,
			IdleTimeout: stats.IdleTimeout.String(),
			Uptime:      time.Since(started).Round(time.Second).String(),
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Could not write stats")
		}
	})
	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Trace().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("Admin request")
		})
	}
}
