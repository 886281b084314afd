package adapthttp

import (
	"net/http"

	"github.com/bearyjd/vitalforge/internal/domain"
)

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	type kindInfo struct {
		Kind     domain.MetricKind `json:"kind"`
		Unit     domain.Unit       `json:"unit"`
		Category domain.Category   `json:"category"`
	}
	items := make([]kindInfo, 0, len(domain.Kinds()))
	for _, k := range domain.Kinds() {
		items = append(items, kindInfo{Kind: k, Unit: k.CanonicalUnit(), Category: k.Category()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	kind, err := domain.ParseMetricKind(r.URL.Query().Get("metric"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	days := intQuery(r, "days", 30)
	asOf, err := dateQuery(r, "asOf", domain.DateOf(s.now()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	series, gaps, err := s.trend.Series(ctx, kind, days, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := map[string]any{
		"metric": kind,
		"unit":   kind.CanonicalUnit(),
		"asOf":   asOf,
		"series": series,
		"gaps":   gaps,
	}
	if window := intQuery(r, "avg", 0); window > 0 {
		avg, err := s.trend.MovingAverage(ctx, kind, days, window, asOf)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp["movingAvg"] = avg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	asOf, err := dateQuery(r, "asOf", domain.DateOf(s.now()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	items, err := s.trend.Summaries(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"asOf": asOf, "items": items})
}

func (s *Server) handleFindings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	asOf, err := dateQuery(r, "asOf", domain.DateOf(s.now()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	findings, err := s.advisor.Findings(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if findings == nil {
		findings = []domain.Finding{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"asOf": asOf, "findings": findings})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cards, cached, err := s.advisor.Recommendations(r.Context(), boolQuery(r, "force"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": cards, "cached": cached})
}
