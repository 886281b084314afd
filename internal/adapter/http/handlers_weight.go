package adapthttp

import (
	"errors"
	"net/http"

	"github.com/bearyjd/vitalforge/internal/domain"
)

func (s *Server) handleWeight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodPut:
		var body struct {
			Value float64 `json:"value"`
			Unit  string  `json:"unit"`
		}
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		point, err := s.weight.Record(ctx, body.Value, domain.Unit(body.Unit))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entry": point})

	case http.MethodDelete:
		raw := r.URL.Query().Get("date")
		if raw == "" {
			writeError(w, http.StatusBadRequest, errors.New("date query parameter is required"))
			return
		}
		date, err := domain.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.weight.Delete(ctx, date); err != nil {
			if errors.Is(err, domain.ErrNotDeletable) {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "date": date})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
