package filters

import (
	"strings"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

// Patch is a partial filter update. Nil fields are left alone.
type Patch struct {
	Direction       *types.Direction       `json:"direction,omitempty"`
	Reviewed        *types.ReviewedFilter  `json:"reviewed,omitempty"`
	Connected       *types.ConnectedFilter `json:"connected,omitempty"`
	NoteFilter      *types.NoteFilter      `json:"noteFilter,omitempty"`
	RecordingFilter *types.RecordingFilter `json:"recordingFilter,omitempty"`
	DurationFilter  *types.DurationFilter  `json:"durationFilter,omitempty"`
	LabelFilter     *string                `json:"labelFilter,omitempty"`
	NameFilter      *types.NameFilter      `json:"nameFilter,omitempty"`
	EmployeeID      *string                `json:"employeeId,omitempty"`
	DateRange       *types.DateRange       `json:"dateRange,omitempty"`
	CustomRange     *types.CustomRange     `json:"customRange,omitempty"`
	Sort            *types.Sort            `json:"sort,omitempty"`
	Search          *string                `json:"search,omitempty"`
}

// Validate checks every set field against its enum
func (p Patch) Validate() error {
	switch {
	case p.Direction != nil && !types.ValidDirections[*p.Direction]:
		return invalid("direction", *p.Direction)
	case p.Reviewed != nil && !types.ValidReviewed[*p.Reviewed]:
		return invalid("reviewed", *p.Reviewed)
	case p.Connected != nil && !types.ValidConnected[*p.Connected]:
		return invalid("connected", *p.Connected)
	case p.NoteFilter != nil && !types.ValidNoteFilters[*p.NoteFilter]:
		return invalid("noteFilter", *p.NoteFilter)
	case p.RecordingFilter != nil && !types.ValidRecordingFilters[*p.RecordingFilter]:
		return invalid("recordingFilter", *p.RecordingFilter)
	case p.DurationFilter != nil && !types.ValidDurationFilters[*p.DurationFilter]:
		return invalid("durationFilter", *p.DurationFilter)
	case p.NameFilter != nil && !types.ValidNameFilters[*p.NameFilter]:
		return invalid("nameFilter", *p.NameFilter)
	case p.DateRange != nil && !types.ValidDateRanges[*p.DateRange]:
		return invalid("dateRange", *p.DateRange)
	case p.Sort != nil && strings.TrimSpace(p.Sort.Key) == "":
		return invalid("sort.key", p.Sort.Key)
	case p.Sort != nil && p.Sort.Direction != types.SortAsc && p.Sort.Direction != types.SortDesc:
		return invalid("sort.direction", p.Sort.Direction)
	}
	return nil
}

// Apply validates the whole patch, then applies it as one change. Listeners
// see a single Change naming every field that actually moved.
func (s *Store) Apply(p Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	before := s.state.Clone()
	st := &s.state
	if p.Direction != nil {
		st.Direction = *p.Direction
	}
	if p.Reviewed != nil {
		st.Reviewed = *p.Reviewed
	}
	if p.Connected != nil {
		st.Connected = *p.Connected
	}
	if p.NoteFilter != nil {
		st.NoteFilter = *p.NoteFilter
	}
	if p.RecordingFilter != nil {
		st.RecordingFilter = *p.RecordingFilter
	}
	if p.DurationFilter != nil {
		st.DurationFilter = *p.DurationFilter
	}
	if p.LabelFilter != nil {
		label := strings.TrimSpace(*p.LabelFilter)
		if label == "" {
			label = types.FilterAll
		}
		st.LabelFilter = label
	}
	if p.NameFilter != nil {
		st.NameFilter = *p.NameFilter
	}
	if p.EmployeeID != nil {
		st.EmployeeID = strings.TrimSpace(*p.EmployeeID)
	}
	if p.DateRange != nil {
		st.DateRange = *p.DateRange
	}
	if p.CustomRange != nil {
		st.CustomRange = *p.CustomRange
	}
	if p.Sort != nil {
		st.Sort = *p.Sort
	}
	if p.Search != nil {
		st.Search = *p.Search
	}
	fields := changedFields(before, s.state)
	s.mu.Unlock()

	if len(fields) > 0 {
		s.notify(Change{Fields: fields, ResetPage: true})
	}
	return nil
}

func changedFields(a, b types.FilterState) []string {
	var out []string
	add := func(changed bool, name string) {
		if changed {
			out = append(out, name)
		}
	}
	add(a.Direction != b.Direction, "direction")
	add(a.Reviewed != b.Reviewed, "reviewed")
	add(a.Connected != b.Connected, "connected")
	add(a.NoteFilter != b.NoteFilter, "noteFilter")
	add(a.RecordingFilter != b.RecordingFilter, "recordingFilter")
	add(a.DurationFilter != b.DurationFilter, "durationFilter")
	add(a.LabelFilter != b.LabelFilter, "labelFilter")
	add(a.NameFilter != b.NameFilter, "nameFilter")
	add(a.EmployeeID != b.EmployeeID, "employeeId")
	add(a.DateRange != b.DateRange, "dateRange")
	add(a.CustomRange != b.CustomRange, "customRange")
	add(a.Sort != b.Sort, "sort")
	add(a.Search != b.Search, "search")
	return out
}
