package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/filters"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/session"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

// UpdateFilters handles PUT /api/view/filters with a partial filter patch
func (h *ViewHandler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var patch filters.Patch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.update(w, r, func(s *session.Session) error {
		return s.Filters().Apply(patch)
	})
}

// ClearFilters handles POST /api/view/filters/clear
func (h *ViewHandler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(s *session.Session) error {
		s.Filters().ClearAll()
		return nil
	})
}

// AddCustomFilter handles POST /api/view/custom-filters
func (h *ViewHandler) AddCustomFilter(w http.ResponseWriter, r *http.Request) {
	var added types.CustomFilter
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	err := s.Update(r.Context(), func() error {
		added = s.Filters().AddCustomFilter()
		return nil
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// UpdateCustomFilter handles PATCH /api/view/custom-filters/{id}
func (h *ViewHandler) UpdateCustomFilter(w http.ResponseWriter, r *http.Request) {
	var patch filters.CustomFilterPatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "id")
	h.update(w, r, func(s *session.Session) error {
		return s.Filters().UpdateCustomFilter(id, patch)
	})
}

// RemoveCustomFilter handles DELETE /api/view/custom-filters/{id}
func (h *ViewHandler) RemoveCustomFilter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.update(w, r, func(s *session.Session) error {
		s.Filters().RemoveCustomFilter(id)
		return nil
	})
}

type segmentRequest struct {
	Name string `json:"name"`
}

// SaveSegment handles POST /api/view/segments
func (h *ViewHandler) SaveSegment(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var saved types.Segment
	err := s.Update(r.Context(), func() error {
		var err error
		saved, err = s.Filters().SaveSegment(req.Name)
		return err
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// RenameSegment handles PUT /api/view/segments/{id}. The segment is also
// re-snapshotted from the current filters.
func (h *ViewHandler) RenameSegment(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var updated types.Segment
	err := s.Update(r.Context(), func() error {
		var err error
		updated, err = s.Filters().UpdateSegment(chi.URLParam(r, "id"), req.Name)
		return err
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ApplySegment handles POST /api/view/segments/{id}/apply
func (h *ViewHandler) ApplySegment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.update(w, r, func(s *session.Session) error {
		return s.Filters().ApplySegment(id)
	})
}

// DeleteSegment handles DELETE /api/view/segments/{id}
func (h *ViewHandler) DeleteSegment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.update(w, r, func(s *session.Session) error {
		return s.Filters().DeleteSegment(id)
	})
}
