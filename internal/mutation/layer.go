// Package mutation applies in-place edits to cached rows before the backend
// confirms them, and rolls them back when it does not.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/cache"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/labels"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/metrics"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

// ErrCallNotCached is returned when the edited call is not on the current page
var ErrCallNotCached = errors.New("call is not in the current page")

// Editable fields, named as on the wire
const (
	FieldReviewed    = "reviewed"
	FieldIsLiked     = "is_liked"
	FieldLabels      = "labels"
	FieldNote        = "note"
	FieldPersonNote  = "person_note"
	FieldContactName = "contact_name"
)

// Updater sends a partial call update to the backend
type Updater interface {
	UpdateCall(ctx context.Context, id string, fields map[string]any) error
}

// LabelRecorder learns labels from successful edits
type LabelRecorder interface {
	Remember(labels []string)
}

// Notice reports the outcome of one edit
type Notice struct {
	CallID  string `json:"callId"`
	Field   string `json:"field"`
	Pending bool   `json:"pending"` // local patch applied, backend not yet answered
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Listener receives notices and row changes
type Listener func(Notice)

// field describes how to write and restore one editable column
type field struct {
	name string
	// person-scoped fields are shared by every call with the same phone number
	personScoped bool
	set          func(r *types.Call)
	restore      func(r *types.Call, from types.Call)
}

// Layer is the optimistic edit layer of one view session
type Layer struct {
	rows    *cache.RowCache
	updater Updater
	labels  LabelRecorder

	listenerMu sync.RWMutex
	listeners  []Listener

	logger zerolog.Logger
}

// NewLayer creates a layer over rows. recorder may be nil.
func NewLayer(rows *cache.RowCache, updater Updater, recorder LabelRecorder, logger zerolog.Logger) *Layer {
	return &Layer{
		rows:    rows,
		updater: updater,
		labels:  recorder,
		logger:  logger.With().Str("component", "mutation").Logger(),
	}
}

// Subscribe registers a listener
func (l *Layer) Subscribe(fn Listener) {
	l.listenerMu.Lock()
	defer l.listenerMu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *Layer) notify(n Notice) {
	l.listenerMu.RLock()
	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	l.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(n)
	}
}

// SetReviewed marks a call reviewed or not
func (l *Layer) SetReviewed(ctx context.Context, id string, v bool) error {
	return l.apply(ctx, id, v, field{
		name:    FieldReviewed,
		set:     func(r *types.Call) { r.Reviewed = v },
		restore: func(r *types.Call, from types.Call) { r.Reviewed = from.Reviewed },
	})
}

// SetLiked marks a call liked or not
func (l *Layer) SetLiked(ctx context.Context, id string, v bool) error {
	return l.apply(ctx, id, v, field{
		name:    FieldIsLiked,
		set:     func(r *types.Call) { r.IsLiked = v },
		restore: func(r *types.Call, from types.Call) { r.IsLiked = from.IsLiked },
	})
}

// SetLabels replaces the labels of one call. Labels are call-scoped and
// never copied to other calls of the same contact.
func (l *Layer) SetLabels(ctx context.Context, id string, list []string) error {
	joined := labels.Join(list)
	err := l.apply(ctx, id, joined, field{
		name:    FieldLabels,
		set:     func(r *types.Call) { r.Labels = joined },
		restore: func(r *types.Call, from types.Call) { r.Labels = from.Labels },
	})
	if err == nil && l.labels != nil {
		l.labels.Remember(labels.Split(joined))
	}
	return err
}

// SetNote sets the call note
func (l *Layer) SetNote(ctx context.Context, id, note string) error {
	return l.apply(ctx, id, note, field{
		name:    FieldNote,
		set:     func(r *types.Call) { r.Note = note },
		restore: func(r *types.Call, from types.Call) { r.Note = from.Note },
	})
}

// SetPersonNote sets the note on the contact, shown on all their calls
func (l *Layer) SetPersonNote(ctx context.Context, id, note string) error {
	return l.apply(ctx, id, note, field{
		name:         FieldPersonNote,
		personScoped: true,
		set:          func(r *types.Call) { r.PersonNote = note },
		restore:      func(r *types.Call, from types.Call) { r.PersonNote = from.PersonNote },
	})
}

// SetContactName renames the contact on all their calls
func (l *Layer) SetContactName(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	return l.apply(ctx, id, name, field{
		name:         FieldContactName,
		personScoped: true,
		set:          func(r *types.Call) { r.ContactName = name },
		restore:      func(r *types.Call, from types.Call) { r.ContactName = from.ContactName },
	})
}

func (l *Layer) apply(ctx context.Context, id string, value any, f field) error {
	before, ok := l.rows.Patch(id, f.set)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCallNotCached, id)
	}

	var siblings map[string]types.Call
	if f.personScoped && before.PhoneNumber != "" {
		phone := before.PhoneNumber
		siblings = l.rows.PatchWhere(
			func(r types.Call) bool { return r.ID != id && r.PhoneNumber == phone },
			f.set,
		)
	}

	l.notify(Notice{CallID: id, Field: f.name, Pending: true})

	err := l.updater.UpdateCall(ctx, id, map[string]any{f.name: value})
	if err != nil {
		l.rows.Patch(id, func(r *types.Call) { f.restore(r, before) })
		for sid, prev := range siblings {
			prev := prev
			l.rows.Patch(sid, func(r *types.Call) { f.restore(r, prev) })
		}

		l.logger.Warn().Err(err).Str("call_id", id).Str("field", f.name).Msg("update failed, reverted")
		metrics.Get().RecordMutation(f.name, metrics.OutcomeFailure)
		l.notify(Notice{CallID: id, Field: f.name, Success: false, Message: "Failed to update " + humanField(f.name)})
		return err
	}

	l.logger.Debug().Str("call_id", id).Str("field", f.name).Int("propagated", len(siblings)).Msg("update applied")
	metrics.Get().RecordMutation(f.name, metrics.OutcomeSuccess)
	l.notify(Notice{CallID: id, Field: f.name, Success: true, Message: humanField(f.name) + " updated"})
	return nil
}

func humanField(name string) string {
	switch name {
	case FieldIsLiked:
		return "Like"
	case FieldPersonNote:
		return "Person note"
	case FieldContactName:
		return "Name"
	case FieldReviewed:
		return "Review status"
	case FieldLabels:
		return "Labels"
	default:
		return "Note"
	}
}
