// Package settings persists the view configuration in two tiers: a local
// key-value store written on every change, and a remote user_settings blob
// written through a debouncer.
package settings

import "github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"

// RemoteKey is the user_settings key of the page configuration blob
const RemoteKey = "calls_page_config"

// LocalPrefix is prepended to each field name to form its local key
const LocalPrefix = "calls_"

// ArrivalsKey is the local key of the recently opened calls map. It is not
// part of the remote blob.
const ArrivalsKey = LocalPrefix + "newArrivals"

// PageConfig is the persisted view configuration. A nil field was never
// saved and leaves the default (or the other tier's value) in place.
type PageConfig struct {
	Direction       *types.Direction       `json:"direction,omitempty"`
	Reviewed        *types.ReviewedFilter  `json:"reviewedFilter,omitempty"`
	Connected       *types.ConnectedFilter `json:"connectedFilter,omitempty"`
	NoteFilter      *types.NoteFilter      `json:"noteFilter,omitempty"`
	RecordingFilter *types.RecordingFilter `json:"recordingFilter,omitempty"`
	DurationFilter  *types.DurationFilter  `json:"durationFilter,omitempty"`
	LabelFilter     *string                `json:"labelFilter,omitempty"`
	NameFilter      *types.NameFilter      `json:"nameFilter,omitempty"`
	EmployeeID      *string                `json:"employeeId,omitempty"`
	DateRange       *types.DateRange       `json:"dateRange,omitempty"`
	CustomRange     *types.CustomRange     `json:"customRange,omitempty"`
	Sort            *types.Sort            `json:"sort,omitempty"`
	CustomFilters   *[]types.CustomFilter  `json:"customFilters,omitempty"`

	Segments        *[]types.Segment `json:"savedSegments,omitempty"`
	ActiveSegmentID *string          `json:"activeSegmentId,omitempty"`

	FilterOrder          *[]string                   `json:"filterOrder,omitempty"`
	VisibleFilters       *[]string                   `json:"visibleFilters,omitempty"`
	ColumnOrder          *[]string                   `json:"columnOrder,omitempty"`
	VisibleColumns       *[]string                   `json:"visibleColumns,omitempty"`
	ColumnWidths         map[string]int              `json:"columnWidths,omitempty"`
	ContactColumnOptions *types.ContactColumnOptions `json:"contactColumnOptions,omitempty"`
}

// Merge overlays remote on local. A remote field wins only when present.
func Merge(local, remote PageConfig) PageConfig {
	out := local
	if remote.Direction != nil {
		out.Direction = remote.Direction
	}
	if remote.Reviewed != nil {
		out.Reviewed = remote.Reviewed
	}
	if remote.Connected != nil {
		out.Connected = remote.Connected
	}
	if remote.NoteFilter != nil {
		out.NoteFilter = remote.NoteFilter
	}
	if remote.RecordingFilter != nil {
		out.RecordingFilter = remote.RecordingFilter
	}
	if remote.DurationFilter != nil {
		out.DurationFilter = remote.DurationFilter
	}
	if remote.LabelFilter != nil {
		out.LabelFilter = remote.LabelFilter
	}
	if remote.NameFilter != nil {
		out.NameFilter = remote.NameFilter
	}
	if remote.EmployeeID != nil {
		out.EmployeeID = remote.EmployeeID
	}
	if remote.DateRange != nil {
		out.DateRange = remote.DateRange
	}
	if remote.CustomRange != nil {
		out.CustomRange = remote.CustomRange
	}
	if remote.Sort != nil {
		out.Sort = remote.Sort
	}
	if remote.CustomFilters != nil {
		out.CustomFilters = remote.CustomFilters
	}
	if remote.Segments != nil {
		out.Segments = remote.Segments
	}
	if remote.ActiveSegmentID != nil {
		out.ActiveSegmentID = remote.ActiveSegmentID
	}
	if remote.FilterOrder != nil {
		out.FilterOrder = remote.FilterOrder
	}
	if remote.VisibleFilters != nil {
		out.VisibleFilters = remote.VisibleFilters
	}
	if remote.ColumnOrder != nil {
		out.ColumnOrder = remote.ColumnOrder
	}
	if remote.VisibleColumns != nil {
		out.VisibleColumns = remote.VisibleColumns
	}
	if remote.ColumnWidths != nil {
		out.ColumnWidths = remote.ColumnWidths
	}
	if remote.ContactColumnOptions != nil {
		out.ContactColumnOptions = remote.ContactColumnOptions
	}
	return out
}

// FilterState applies the persisted filter fields over the defaults
func (c PageConfig) FilterState() types.FilterState {
	st := types.DefaultFilterState()
	if c.Direction != nil {
		st.Direction = *c.Direction
	}
	if c.Reviewed != nil {
		st.Reviewed = *c.Reviewed
	}
	if c.Connected != nil {
		st.Connected = *c.Connected
	}
	if c.NoteFilter != nil {
		st.NoteFilter = *c.NoteFilter
	}
	if c.RecordingFilter != nil {
		st.RecordingFilter = *c.RecordingFilter
	}
	if c.DurationFilter != nil {
		st.DurationFilter = *c.DurationFilter
	}
	if c.LabelFilter != nil {
		st.LabelFilter = *c.LabelFilter
	}
	if c.NameFilter != nil {
		st.NameFilter = *c.NameFilter
	}
	if c.EmployeeID != nil {
		st.EmployeeID = *c.EmployeeID
	}
	if c.DateRange != nil {
		st.DateRange = *c.DateRange
	}
	if c.CustomRange != nil {
		st.CustomRange = *c.CustomRange
	}
	if c.Sort != nil {
		st.Sort = *c.Sort
	}
	if c.CustomFilters != nil {
		st.CustomFilters = types.CloneCustomFilters(*c.CustomFilters)
	}
	return st
}

// WithFilterState records every persisted filter field of st. Search is
// session-only and not persisted.
func (c PageConfig) WithFilterState(st types.FilterState) PageConfig {
	filters := types.CloneCustomFilters(st.CustomFilters)
	c.Direction = &st.Direction
	c.Reviewed = &st.Reviewed
	c.Connected = &st.Connected
	c.NoteFilter = &st.NoteFilter
	c.RecordingFilter = &st.RecordingFilter
	c.DurationFilter = &st.DurationFilter
	c.LabelFilter = &st.LabelFilter
	c.NameFilter = &st.NameFilter
	c.EmployeeID = &st.EmployeeID
	c.DateRange = &st.DateRange
	c.CustomRange = &st.CustomRange
	c.Sort = &st.Sort
	c.CustomFilters = &filters
	return c
}
