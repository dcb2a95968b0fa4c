package api

import (
	"net/http"

	"github.com/sourcemesh/router/internal/routing"
)

type RankingHandler struct {
	ranker *routing.Ranker
}

func NewRankingHandler(r *routing.Ranker) *RankingHandler {
	return &RankingHandler{ranker: r}
}

// Preview returns the full scored field for a pair without creating an
// assignment or filtering by availability.
// GET /api/v1/ranking?requirement_id=...&vendor_id=...
func (h *RankingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	requirementID := r.URL.Query().Get("requirement_id")
	vendorID := r.URL.Query().Get("vendor_id")
	if requirementID == "" || vendorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "requirement_id and vendor_id required"})
		return
	}

	details, err := h.ranker.Rank(r.Context(), requirementID, vendorID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	candidates := make([]map[string]interface{}, 0, len(details))
	for _, d := range details {
		candidates = append(candidates, d.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requirement_id": requirementID,
		"vendor_id":      vendorID,
		"candidates":     candidates,
	})
}
