package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sourcemesh/router/internal/routing"
	"github.com/sourcemesh/router/internal/store"
)

type OffersHandler struct {
	store  store.Store
	engine *routing.Engine
}

func NewOffersHandler(s store.Store, e *routing.Engine) *OffersHandler {
	return &OffersHandler{store: s, engine: e}
}

type TrackOfferRequest struct {
	VendorID string `json:"vendor_id"`
}

func (h *OffersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TrackOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.VendorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "vendor_id required"})
		return
	}

	o, err := h.engine.TrackOffer(r.Context(), req.VendorID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OffersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offer id"})
		return
	}

	o, err := h.store.GetOffer(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "offer not found"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OffersHandler) Reconfirm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offer id"})
		return
	}

	o, err := h.engine.Reconfirm(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, routing.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "offer not found"})
		case errors.Is(err, routing.ErrConverted):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "offer already converted"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, o)
}
