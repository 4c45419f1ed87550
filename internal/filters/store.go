// Package filters holds the per-user filter state, custom filters and saved segments.
package filters

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

var (
	// ErrBlankSegmentName is returned when a segment is saved or renamed with a blank name
	ErrBlankSegmentName = errors.New("segment name must not be blank")
	// ErrSegmentNotFound is returned when a segment id is unknown
	ErrSegmentNotFound = errors.New("segment not found")
	// ErrInvalidValue is returned when a setter receives a value outside its enum
	ErrInvalidValue = errors.New("invalid filter value")
)

// Change describes a mutation of the store. ResetPage tells the fetch
// controller to go back to page 1.
type Change struct {
	Fields    []string `json:"fields"`
	ResetPage bool     `json:"resetPage"`
}

// Listener is called synchronously after each change, outside the store lock
type Listener func(Change)

// Options configures a Store
type Options struct {
	// ResetOnSegmentDelete clears all filters when the active segment is deleted
	ResetOnSegmentDelete bool
	// NewID generates custom filter and segment ids. Defaults to uuid.
	NewID func() string
}

// Store is the filter state of one view session
type Store struct {
	mu              sync.Mutex
	state           types.FilterState
	segments        []types.Segment
	activeSegmentID string

	resetOnSegmentDelete bool
	newID                func() string

	listenerMu sync.RWMutex
	listeners  []Listener

	logger zerolog.Logger
}

// NewStore creates a store at the default filter state
func NewStore(opts Options, logger zerolog.Logger) *Store {
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	return &Store{
		state:                types.DefaultFilterState(),
		segments:             []types.Segment{},
		resetOnSegmentDelete: opts.ResetOnSegmentDelete,
		newID:                newID,
		logger:               logger.With().Str("component", "filters").Logger(),
	}
}

// Subscribe registers a listener
func (s *Store) Subscribe(l Listener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) notify(c Change) {
	if len(c.Fields) == 0 {
		return
	}
	s.listenerMu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.RUnlock()

	for _, l := range listeners {
		l(c)
	}
}

// State returns a copy of the current filter state
func (s *Store) State() types.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Segments returns a copy of the saved segments
func (s *Store) Segments() []types.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSegments(s.segments)
}

// ActiveSegment returns the active segment, or nil
func (s *Store) ActiveSegment() *types.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seg, _ := s.findSegment(s.activeSegmentID); seg != nil {
		c := seg.Clone()
		return &c
	}
	return nil
}

// ActiveSegmentID returns the id of the active segment, or ""
func (s *Store) ActiveSegmentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSegmentID
}

// Load replaces the whole state without notifying. Invalid values fall back
// to their defaults and an active id that names no segment is dropped.
func (s *Store) Load(state types.FilterState, segments []types.Segment, activeSegmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Sanitize(state)
	s.segments = cloneSegments(segments)
	s.activeSegmentID = ""
	if seg, _ := s.findSegment(activeSegmentID); seg != nil {
		s.activeSegmentID = activeSegmentID
	}
}

// update runs fn under the lock and notifies with ResetPage when the state changed
func (s *Store) update(field string, fn func(st *types.FilterState)) {
	s.mu.Lock()
	before := s.state.Clone()
	fn(&s.state)
	changed := !equalState(before, s.state)
	s.mu.Unlock()

	if changed {
		s.logger.Debug().Str("field", field).Msg("filter changed")
		s.notify(Change{Fields: []string{field}, ResetPage: true})
	}
}

func invalid(field string, v any) error {
	return fmt.Errorf("%w: %s=%v", ErrInvalidValue, field, v)
}

// SetDirection sets the call type filter
func (s *Store) SetDirection(v types.Direction) error {
	if !types.ValidDirections[v] {
		return invalid("direction", v)
	}
	s.update("direction", func(st *types.FilterState) { st.Direction = v })
	return nil
}

// SetReviewed sets the review status filter
func (s *Store) SetReviewed(v types.ReviewedFilter) error {
	if !types.ValidReviewed[v] {
		return invalid("reviewed", v)
	}
	s.update("reviewed", func(st *types.FilterState) { st.Reviewed = v })
	return nil
}

// SetConnected sets the connected filter
func (s *Store) SetConnected(v types.ConnectedFilter) error {
	if !types.ValidConnected[v] {
		return invalid("connected", v)
	}
	s.update("connected", func(st *types.FilterState) { st.Connected = v })
	return nil
}

// SetNoteFilter sets the note presence filter
func (s *Store) SetNoteFilter(v types.NoteFilter) error {
	if !types.ValidNoteFilters[v] {
		return invalid("noteFilter", v)
	}
	s.update("noteFilter", func(st *types.FilterState) { st.NoteFilter = v })
	return nil
}

// SetRecordingFilter sets the recording filter
func (s *Store) SetRecordingFilter(v types.RecordingFilter) error {
	if !types.ValidRecordingFilters[v] {
		return invalid("recordingFilter", v)
	}
	s.update("recordingFilter", func(st *types.FilterState) { st.RecordingFilter = v })
	return nil
}

// SetDurationFilter sets the duration bucket
func (s *Store) SetDurationFilter(v types.DurationFilter) error {
	if !types.ValidDurationFilters[v] {
		return invalid("durationFilter", v)
	}
	s.update("durationFilter", func(st *types.FilterState) { st.DurationFilter = v })
	return nil
}

// SetLabelFilter sets the label filter. A blank label means "all".
func (s *Store) SetLabelFilter(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		v = types.FilterAll
	}
	s.update("labelFilter", func(st *types.FilterState) { st.LabelFilter = v })
	return nil
}

// SetNameFilter sets the name presence filter
func (s *Store) SetNameFilter(v types.NameFilter) error {
	if !types.ValidNameFilters[v] {
		return invalid("nameFilter", v)
	}
	s.update("nameFilter", func(st *types.FilterState) { st.NameFilter = v })
	return nil
}

// SetEmployeeID sets the employee filter. Empty means all employees.
func (s *Store) SetEmployeeID(v string) error {
	v = strings.TrimSpace(v)
	s.update("employeeId", func(st *types.FilterState) { st.EmployeeID = v })
	return nil
}

// SetDateRange sets the date window. The custom range is left as it is so
// switching back to custom resumes it.
func (s *Store) SetDateRange(v types.DateRange) error {
	if !types.ValidDateRanges[v] {
		return invalid("dateRange", v)
	}
	s.update("dateRange", func(st *types.FilterState) { st.DateRange = v })
	return nil
}

// SetCustomRange sets the custom start/end pair. Either end may be blank
// while the user is still picking.
func (s *Store) SetCustomRange(r types.CustomRange) error {
	s.update("customRange", func(st *types.FilterState) { st.CustomRange = r })
	return nil
}

// SetSort sets the list ordering
func (s *Store) SetSort(v types.Sort) error {
	if strings.TrimSpace(v.Key) == "" {
		return invalid("sort.key", v.Key)
	}
	if v.Direction != types.SortAsc && v.Direction != types.SortDesc {
		return invalid("sort.direction", v.Direction)
	}
	s.update("sort", func(st *types.FilterState) { st.Sort = v })
	return nil
}

// SetSearch sets the free-text search
func (s *Store) SetSearch(v string) error {
	s.update("search", func(st *types.FilterState) { st.Search = v })
	return nil
}

// AddCustomFilter appends a filter on the first registry field with the
// contains operator and an empty value
func (s *Store) AddCustomFilter() types.CustomFilter {
	f := types.CustomFilter{
		ID:       s.newID(),
		Key:      types.CustomFilterFields[0],
		Operator: types.OpContains,
		Value:    "",
	}
	s.update("customFilters", func(st *types.FilterState) {
		st.CustomFilters = append(st.CustomFilters, f)
	})
	return f
}

// RemoveCustomFilter removes the filter with id. Unknown ids are ignored.
func (s *Store) RemoveCustomFilter(id string) {
	s.update("customFilters", func(st *types.FilterState) {
		out := st.CustomFilters[:0:0]
		for _, f := range st.CustomFilters {
			if f.ID != id {
				out = append(out, f)
			}
		}
		st.CustomFilters = out
	})
}

// CustomFilterPatch is a partial update of a custom filter
type CustomFilterPatch struct {
	Key      *string `json:"key,omitempty"`
	Operator *string `json:"operator,omitempty"`
	Value    *string `json:"value,omitempty"`
}

// UpdateCustomFilter merges patch into the filter with id. An unknown id is
// a no-op, not an error.
func (s *Store) UpdateCustomFilter(id string, patch CustomFilterPatch) error {
	if patch.Key != nil && !types.IsCustomFilterField(*patch.Key) {
		return invalid("customFilter.key", *patch.Key)
	}
	if patch.Operator != nil && !types.IsCustomFilterOperator(*patch.Operator) {
		return invalid("customFilter.operator", *patch.Operator)
	}

	s.update("customFilters", func(st *types.FilterState) {
		for i := range st.CustomFilters {
			f := &st.CustomFilters[i]
			if f.ID != id {
				continue
			}
			if patch.Key != nil {
				f.Key = *patch.Key
			}
			if patch.Operator != nil {
				f.Operator = *patch.Operator
			}
			if patch.Value != nil {
				f.Value = *patch.Value
			}
			if !types.OperatorTakesValue(f.Operator) {
				f.Value = ""
			}
			return
		}
	})
	return nil
}

// SaveSegment stores the current custom filters, date range, direction and
// review status under name
func (s *Store) SaveSegment(name string) (types.Segment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Segment{}, ErrBlankSegmentName
	}

	s.mu.Lock()
	seg := snapshotSegment(s.newID(), name, s.state)
	s.segments = append(s.segments, seg)
	s.mu.Unlock()

	s.logger.Info().Str("segment_id", seg.ID).Str("name", name).Msg("segment saved")
	s.notify(Change{Fields: []string{"segments"}})
	return seg.Clone(), nil
}

// ApplySegment overwrites custom filters, date range, direction and review
// status from the segment and marks it active. Other fields are untouched.
func (s *Store) ApplySegment(id string) error {
	s.mu.Lock()
	seg, _ := s.findSegment(id)
	if seg == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
	}
	before := s.state.Clone()
	s.state.CustomFilters = types.CloneCustomFilters(seg.Filters)
	s.state.DateRange = seg.DateRange
	s.state.Direction = seg.Direction
	s.state.Reviewed = seg.ReviewedFilter
	s.state = Sanitize(s.state)
	wasActive := s.activeSegmentID == id
	s.activeSegmentID = id
	changed := !equalState(before, s.state)
	s.mu.Unlock()

	c := Change{}
	if changed {
		c = Change{Fields: []string{"customFilters", "dateRange", "direction", "reviewed"}, ResetPage: true}
	}
	if !wasActive {
		c.Fields = append(c.Fields, "activeSegment")
	}
	s.notify(c)
	return nil
}

// UpdateSegment renames the segment and re-snapshots it from the current state
func (s *Store) UpdateSegment(id, name string) (types.Segment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Segment{}, ErrBlankSegmentName
	}

	s.mu.Lock()
	_, idx := s.findSegment(id)
	if idx < 0 {
		s.mu.Unlock()
		return types.Segment{}, fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
	}
	seg := snapshotSegment(id, name, s.state)
	s.segments[idx] = seg
	s.mu.Unlock()

	s.notify(Change{Fields: []string{"segments"}})
	return seg.Clone(), nil
}

// DeleteSegment removes a segment. Deleting the active segment clears the
// active pointer and, when configured, resets every filter.
func (s *Store) DeleteSegment(id string) error {
	s.mu.Lock()
	_, idx := s.findSegment(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
	}
	s.segments = append(s.segments[:idx:idx], s.segments[idx+1:]...)
	wasActive := s.activeSegmentID == id
	if wasActive {
		s.activeSegmentID = ""
	}
	s.mu.Unlock()

	s.notify(Change{Fields: []string{"segments"}})
	if wasActive && s.resetOnSegmentDelete {
		s.ClearAll()
	}
	return nil
}

// ClearAll resets every filter to its default and clears the active segment.
// Saved segments are kept.
func (s *Store) ClearAll() {
	s.mu.Lock()
	before := s.state.Clone()
	hadActive := s.activeSegmentID != ""
	s.state = types.DefaultFilterState()
	s.activeSegmentID = ""
	changed := !equalState(before, s.state)
	s.mu.Unlock()

	c := Change{}
	if changed {
		c = Change{Fields: []string{"*"}, ResetPage: true}
	} else if hadActive {
		c = Change{Fields: []string{"activeSegment"}}
	}
	s.notify(c)
}

func (s *Store) findSegment(id string) (*types.Segment, int) {
	if id == "" {
		return nil, -1
	}
	for i := range s.segments {
		if s.segments[i].ID == id {
			return &s.segments[i], i
		}
	}
	return nil, -1
}

func snapshotSegment(id, name string, st types.FilterState) types.Segment {
	return types.Segment{
		ID:             id,
		Name:           name,
		Filters:        types.CloneCustomFilters(st.CustomFilters),
		DateRange:      st.DateRange,
		Direction:      st.Direction,
		ReviewedFilter: st.Reviewed,
	}
}

func cloneSegments(in []types.Segment) []types.Segment {
	out := make([]types.Segment, len(in))
	for i, seg := range in {
		out[i] = seg.Clone()
	}
	return out
}

func equalState(a, b types.FilterState) bool {
	if len(a.CustomFilters) == 0 && len(b.CustomFilters) == 0 {
		a.CustomFilters, b.CustomFilters = nil, nil
	}
	return reflect.DeepEqual(a, b)
}

// Sanitize replaces values outside their enums with defaults
func Sanitize(st types.FilterState) types.FilterState {
	d := types.DefaultFilterState()
	if !types.ValidDirections[st.Direction] {
		st.Direction = d.Direction
	}
	if !types.ValidReviewed[st.Reviewed] {
		st.Reviewed = d.Reviewed
	}
	if !types.ValidConnected[st.Connected] {
		st.Connected = d.Connected
	}
	if !types.ValidNoteFilters[st.NoteFilter] {
		st.NoteFilter = d.NoteFilter
	}
	if !types.ValidRecordingFilters[st.RecordingFilter] {
		st.RecordingFilter = d.RecordingFilter
	}
	if !types.ValidDurationFilters[st.DurationFilter] {
		st.DurationFilter = d.DurationFilter
	}
	if strings.TrimSpace(st.LabelFilter) == "" {
		st.LabelFilter = d.LabelFilter
	}
	if !types.ValidNameFilters[st.NameFilter] {
		st.NameFilter = d.NameFilter
	}
	if !types.ValidDateRanges[st.DateRange] {
		st.DateRange = d.DateRange
	}
	if st.Sort.Key == "" || (st.Sort.Direction != types.SortAsc && st.Sort.Direction != types.SortDesc) {
		st.Sort = d.Sort
	}

	filters := make([]types.CustomFilter, 0, len(st.CustomFilters))
	for _, f := range st.CustomFilters {
		if f.ID == "" || !types.IsCustomFilterField(f.Key) || !types.IsCustomFilterOperator(f.Operator) {
			continue
		}
		if !types.OperatorTakesValue(f.Operator) {
			f.Value = ""
		}
		filters = append(filters, f)
	}
	st.CustomFilters = filters
	return st
}
