// Package adapthttp is the driving HTTP adapter: it routes requests to
// the application services and owns nothing but transport concerns.
package adapthttp

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/bearyjd/vitalforge/internal/app"
)

// Server routes HTTP requests to the application services.
type Server struct {
	trend   *app.TrendService
	advisor *app.AdvisorService
	sync    *app.SyncService
	weight  *app.WeightService
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a Server wired to the given application services.
func New(trend *app.TrendService, advisor *app.AdvisorService, sync *app.SyncService, weight *app.WeightService, log zerolog.Logger) *Server {
	return &Server{
		trend:   trend,
		advisor: advisor,
		sync:    sync,
		weight:  weight,
		log:     log.With().Str("component", "http").Logger(),
		now:     time.Now,
	}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("/metrics", s.handleMetrics)
	api.HandleFunc("/series", s.handleSeries)
	api.HandleFunc("/summary", s.handleSummary)
	api.HandleFunc("/findings", s.handleFindings)
	api.HandleFunc("/recommendations", s.handleRecommendations)

	api.HandleFunc("/sync", s.handleSync)
	api.HandleFunc("/sync/status", s.handleSyncStatus)

	api.HandleFunc("/weight", s.handleWeight)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	return s.logRequests(root)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).
			Dur("took", time.Since(start)).Msg("request")
	})
}
