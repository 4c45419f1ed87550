package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/mutation"
)

// DefaultSuggestionLimit caps GET /api/labels when no limit is given
const DefaultSuggestionLimit = 8

type boolRequest struct {
	Value bool `json:"value"`
}

type textRequest struct {
	Value string `json:"value"`
}

type labelsRequest struct {
	Labels []string `json:"labels"`
}

// edit applies one optimistic call edit. The backend outcome decides the
// status; the row in the snapshot is already reverted on failure.
func (h *ViewHandler) edit(w http.ResponseWriter, r *http.Request, req any, fn func(ctx context.Context, m *mutation.Layer, id string) error) {
	if err := decode(w, r, req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := fn(r.Context(), s.Mutations(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

// SetReviewed handles POST /api/calls/{id}/reviewed
func (h *ViewHandler) SetReviewed(w http.ResponseWriter, r *http.Request) {
	var req boolRequest
	h.edit(w, r, &req, func(ctx context.Context, m *mutation.Layer, id string) error {
		return m.SetReviewed(ctx, id, req.Value)
	})
}

// SetLiked handles POST /api/calls/{id}/liked
func (h *ViewHandler) SetLiked(w http.ResponseWriter, r *http.Request) {
	var req boolRequest
	h.edit(w, r, &req, func(ctx context.Context, m *mutation.Layer, id string) error {
		return m.SetLiked(ctx, id, req.Value)
	})
}

// SetLabels handles POST /api/calls/{id}/labels
func (h *ViewHandler) SetLabels(w http.ResponseWriter, r *http.Request) {
	var req labelsRequest
	h.edit(w, r, &req, func(ctx context.Context, m *mutation.Layer, id string) error {
		return m.SetLabels(ctx, id, req.Labels)
	})
}

// SetNote handles POST /api/calls/{id}/note
func (h *ViewHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	h.edit(w, r, &req, func(ctx context.Context, m *mutation.Layer, id string) error {
		return m.SetNote(ctx, id, req.Value)
	})
}

// SetPersonNote handles POST /api/calls/{id}/person-note
func (h *ViewHandler) SetPersonNote(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	h.edit(w, r, &req, func(ctx context.Context, m *mutation.Layer, id string) error {
		return m.SetPersonNote(ctx, id, req.Value)
	})
}

// SetContactName handles POST /api/calls/{id}/name
func (h *ViewHandler) SetContactName(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	h.edit(w, r, &req, func(ctx context.Context, m *mutation.Layer, id string) error {
		return m.SetContactName(ctx, id, req.Value)
	})
}

// Click handles POST /api/calls/{id}/click, marking the call recently opened
func (h *ViewHandler) Click(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.Click(r.Context(), id); err != nil {
		h.logger.Warn().Err(err).Str("call_id", id).Msg("failed to persist recently opened call")
	}
	w.WriteHeader(http.StatusNoContent)
}

// Labels handles GET /api/labels?prefix=&limit=
func (h *ViewHandler) Labels(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	limit := DefaultSuggestionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.SuggestLabels(r.Context(), r.URL.Query().Get("prefix"), limit))
}

// Employees handles GET /api/employees
func (h *ViewHandler) Employees(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	list, err := s.Employees(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("employee list unavailable")
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
