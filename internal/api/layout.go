package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/session"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/view"
)

// Pointer protocol phases
const (
	PhaseStart = "start"
	PhaseOver  = "over"
	PhaseMove  = "move"
	PhaseEnd   = "end"
)

var (
	errUnknownSurface = fmt.Errorf("%w: surface", view.ErrUnknownKey)
	errNoResize       = errors.New("no resize in progress")
)

// list returns the layout list named by the {surface} URL parameter
func list(s *session.Session, r *http.Request) (*view.List, error) {
	switch chi.URLParam(r, "surface") {
	case view.SurfaceFilters:
		return s.FilterBar(), nil
	case view.SurfaceColumns:
		return s.Columns().List, nil
	default:
		return nil, errUnknownSurface
	}
}

type keyRequest struct {
	Key string `json:"key"`
}

// Toggle handles POST /api/view/{surface}/toggle
func (h *ViewHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.update(w, r, func(s *session.Session) error {
		l, err := list(s, r)
		if err != nil {
			return err
		}
		return l.ToggleVisible(req.Key)
	})
}

type dragRequest struct {
	Phase string `json:"phase"`
	Key   string `json:"key"`
}

// Drag handles POST /api/view/{surface}/drag. Each "over" commits the
// reorder immediately.
func (h *ViewHandler) Drag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.update(w, r, func(s *session.Session) error {
		l, err := list(s, r)
		if err != nil {
			return err
		}
		switch req.Phase {
		case PhaseStart:
			return l.DragStart(req.Key)
		case PhaseOver:
			l.DragOver(req.Key)
		case PhaseEnd:
			l.DragEnd()
		default:
			return fmt.Errorf("%w: drag phase %q", errBadBody, req.Phase)
		}
		return nil
	})
}

// ResetLayout handles POST /api/view/{surface}/reset
func (h *ViewHandler) ResetLayout(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(s *session.Session) error {
		l, err := list(s, r)
		if err != nil {
			return err
		}
		l.Reset()
		return nil
	})
}

type resizeRequest struct {
	Phase  string `json:"phase"`
	Column string `json:"column"`
	X      int    `json:"x"`
}

// Resize handles POST /api/view/columns/resize
func (h *ViewHandler) Resize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.update(w, r, func(s *session.Session) error {
		cols := s.Columns()
		switch req.Phase {
		case PhaseStart:
			return cols.ResizeStart(req.Column, req.X)
		case PhaseMove:
			if _, ok := cols.ResizeMove(req.X); !ok {
				return errNoResize
			}
		case PhaseEnd:
			cols.ResizeEnd()
		default:
			return fmt.Errorf("%w: resize phase %q", errBadBody, req.Phase)
		}
		return nil
	})
}

// SetColumnOptions handles PUT /api/view/columns/options
func (h *ViewHandler) SetColumnOptions(w http.ResponseWriter, r *http.Request) {
	var opts types.ContactColumnOptions
	if err := decode(w, r, &opts); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.update(w, r, func(s *session.Session) error {
		s.Columns().SetOptions(opts)
		return nil
	})
}
