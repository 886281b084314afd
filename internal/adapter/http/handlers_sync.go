package adapthttp

import (
	"errors"
	"net/http"

	"github.com/bearyjd/vitalforge/internal/app"
	"github.com/bearyjd/vitalforge/internal/domain"
)

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Kinds []string `json:"kinds"`
		Force bool     `json:"force"`
		From  string   `json:"from"`
		To    string   `json:"to"`
	}
	if r.ContentLength != 0 {
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	opts := app.SyncOptions{Force: body.Force}
	for _, k := range body.Kinds {
		kind, err := domain.ParseMetricKind(k)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		opts.Kinds = append(opts.Kinds, kind)
	}
	if body.From != "" || body.To != "" {
		from, err := domain.ParseDate(body.From)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		to, err := domain.ParseDate(body.To)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if to.Before(from) {
			writeError(w, http.StatusBadRequest, errors.New("to must not precede from"))
			return
		}
		opts.Window = &domain.DateRange{From: from, To: to}
	}

	run, err := s.sync.Run(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run, "status": run.Status()})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	last, lastSuccess, err := s.sync.LastStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"last": last, "lastSuccess": lastSuccess})
}
