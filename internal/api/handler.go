// Package api exposes the view sessions over JSON HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/auth"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/filters"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/mutation"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/session"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/view"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

var errBadBody = errors.New("invalid JSON body")

// ViewHandler serves the calls view of the authenticated user
type ViewHandler struct {
	sessions *session.Manager
	logger   zerolog.Logger
}

// NewViewHandler creates a new ViewHandler
func NewViewHandler(sessions *session.Manager, logger zerolog.Logger) *ViewHandler {
	return &ViewHandler{
		sessions: sessions,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers every /api route on r. r must sit behind auth.Middleware.
func (h *ViewHandler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/view", func(r chi.Router) {
			r.Get("/", h.GetView)
			r.Post("/refresh", h.Refresh)
			r.Post("/page", h.Page)
			r.Post("/release", h.Release)
			r.Post("/reset", h.ResetView)

			r.Put("/filters", h.UpdateFilters)
			r.Post("/filters/clear", h.ClearFilters)

			r.Post("/custom-filters", h.AddCustomFilter)
			r.Patch("/custom-filters/{id}", h.UpdateCustomFilter)
			r.Delete("/custom-filters/{id}", h.RemoveCustomFilter)

			r.Post("/segments", h.SaveSegment)
			r.Put("/segments/{id}", h.RenameSegment)
			r.Post("/segments/{id}/apply", h.ApplySegment)
			r.Delete("/segments/{id}", h.DeleteSegment)

			r.Post("/columns/resize", h.Resize)
			r.Put("/columns/options", h.SetColumnOptions)
			r.Post("/{surface}/toggle", h.Toggle)
			r.Post("/{surface}/drag", h.Drag)
			r.Post("/{surface}/reset", h.ResetLayout)
		})

		r.Route("/calls/{id}", func(r chi.Router) {
			r.Post("/reviewed", h.SetReviewed)
			r.Post("/liked", h.SetLiked)
			r.Post("/labels", h.SetLabels)
			r.Post("/note", h.SetNote)
			r.Post("/person-note", h.SetPersonNote)
			r.Post("/name", h.SetContactName)
			r.Post("/click", h.Click)
		})

		r.Get("/labels", h.Labels)
		r.Get("/employees", h.Employees)
	})
}

// session returns the caller's session, or writes 401
func (h *ViewHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
		return nil, false
	}
	return h.sessions.Get(r.Context(), userID), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadBody),
		errors.Is(err, filters.ErrInvalidValue),
		errors.Is(err, filters.ErrBlankSegmentName),
		errors.Is(err, view.ErrUnknownKey):
		return http.StatusBadRequest
	case errors.Is(err, filters.ErrSegmentNotFound),
		errors.Is(err, mutation.ErrCallNotCached):
		return http.StatusNotFound
	case errors.Is(err, errNoResize):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

// update runs fn as one session operation and answers with the snapshot
func (h *ViewHandler) update(w http.ResponseWriter, r *http.Request, fn func(s *session.Session) error) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Update(r.Context(), func() error { return fn(s) }); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// GetView handles GET /api/view
func (h *ViewHandler) GetView(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Refresh handles POST /api/view/refresh. Fetch failures are reported in
// the snapshot, not as an HTTP error.
func (h *ViewHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Refresh(r.Context()); err != nil {
		h.logger.Debug().Err(err).Msg("refresh failed")
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

type pageRequest struct {
	Page  *int `json:"page,omitempty"`
	Limit *int `json:"limit,omitempty"`
}

// Page handles POST /api/view/page with {page} or {limit}. Out of range
// pages leave the view unchanged.
func (h *ViewHandler) Page(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req pageRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var err error
	switch {
	case req.Limit != nil:
		var accepted bool
		if accepted, err = s.Fetch().SetLimit(r.Context(), *req.Limit); !accepted && err == nil {
			writeError(w, http.StatusBadRequest, errors.New("limit must be positive"))
			return
		}
	case req.Page != nil:
		_, err = s.Fetch().ChangePage(r.Context(), *req.Page)
	default:
		writeError(w, http.StatusBadRequest, errors.New("page or limit required"))
		return
	}
	if err != nil {
		h.logger.Debug().Err(err).Msg("page fetch failed")
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Release handles POST /api/view/release, ending any drag or resize
func (h *ViewHandler) Release(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Release()
	w.WriteHeader(http.StatusNoContent)
}

// ResetView handles POST /api/view/reset, restoring every default and
// dropping the stored settings of the caller
func (h *ViewHandler) ResetView(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.ResetView(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}
