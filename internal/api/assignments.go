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

type AssignmentsHandler struct {
	store  store.Store
	engine *routing.Engine
}

func NewAssignmentsHandler(s store.Store, e *routing.Engine) *AssignmentsHandler {
	return &AssignmentsHandler{store: s, engine: e}
}

type CreateAssignmentRequest struct {
	RequirementID string `json:"requirement_id"`
	VendorID      string `json:"vendor_id"`
}

func (h *AssignmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.RequirementID == "" || req.VendorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "requirement_id and vendor_id required"})
		return
	}

	a, err := h.engine.Create(r.Context(), req.RequirementID, req.VendorID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if a == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "no scoreable buyers for pair"})
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *AssignmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assignment id"})
		return
	}

	a, err := h.store.GetAssignment(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if a == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assignment not found"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AssignmentsHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assignment id"})
		return
	}
	buyerID := r.Header.Get("X-Buyer-ID")

	a, err := h.engine.Claim(r.Context(), id, buyerID)
	if err != nil {
		writeClaimError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type RouteRequest struct {
	Pairs []routing.Pair `json:"pairs"`
}

type RouteResponse struct {
	Created     int                        `json:"created"`
	Assignments []*store.RoutingAssignment `json:"assignments"`
}

// Route runs one auto-routing pass over a batch of fresh
// (requirement, vendor) matches.
func (h *AssignmentsHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Pairs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pairs required"})
		return
	}
	for _, p := range req.Pairs {
		if p.RequirementID == "" || p.VendorID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "every pair needs requirement_id and vendor_id"})
			return
		}
	}

	created, err := h.engine.AutoRoute(r.Context(), req.Pairs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if created == nil {
		created = []*store.RoutingAssignment{}
	}
	writeJSON(w, http.StatusOK, RouteResponse{Created: len(created), Assignments: created})
}

func writeClaimError(w http.ResponseWriter, err error) {
	var ac *routing.AlreadyClaimedError
	var ne *routing.NotEligibleError
	switch {
	case errors.Is(err, routing.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assignment not found"})
	case errors.As(err, &ac):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":      "assignment already claimed",
			"claimed_by": ac.ClaimedBy,
		})
	case errors.Is(err, routing.ErrExpired):
		writeJSON(w, http.StatusGone, map[string]string{"error": "assignment expired"})
	case errors.As(err, &ne):
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"error":    "claim window not open for buyer",
			"buyer_id": ne.BuyerID,
			"opens_at": ne.OpensAt,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
