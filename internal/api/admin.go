package api

import (
	"net/http"

	"github.com/sourcemesh/router/internal/lookup"
	"github.com/sourcemesh/router/internal/routing"
	"github.com/sourcemesh/router/internal/store"
)

type AdminHandler struct {
	store  store.Store
	engine *routing.Engine
	tables *lookup.Tables
}

func NewAdminHandler(s store.Store, e *routing.Engine, t *lookup.Tables) *AdminHandler {
	return &AdminHandler{store: s, engine: e, tables: t}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Sweep triggers an expiration pass outside the periodic schedule.
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result := h.engine.Sweep(r.Context())
	writeJSON(w, http.StatusOK, result)
}

// ReloadLookups re-reads the brand and geography tables from disk so
// mapping fixes land without a restart.
func (h *AdminHandler) ReloadLookups(w http.ResponseWriter, r *http.Request) {
	if err := h.tables.Reload(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}
