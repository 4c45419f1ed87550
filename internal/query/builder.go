// Package query turns the filter state into the backend list query.
//
// Encoding is sparse: a parameter is sent only when its filter is away from
// the "all"/default sentinel, and an absent parameter means "no constraint".
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

// ErrIncompleteCustomRange is returned when a custom range lacks either end.
// Callers treat it as "do not fetch yet", not as a failure.
var ErrIncompleteCustomRange = errors.New("custom date range needs both start and end dates")

// Wire parameter names
const (
	ParamPage            = "page"
	ParamLimit           = "limit"
	ParamDateRange       = "dateRange"
	ParamSearch          = "search"
	ParamTZOffset        = "tzOffset"
	ParamSortBy          = "sortBy"
	ParamSortOrder       = "sortOrder"
	ParamCustomFilters   = "customFilters"
	ParamDirection       = "direction"
	ParamEmployeeID      = "employeeId"
	ParamConnected       = "connected"
	ParamNoteFilter      = "noteFilter"
	ParamRecordingFilter = "recordingFilter"
	ParamDurationFilter  = "durationFilter"
	ParamLabel           = "label"
	ParamNameFilter      = "nameFilter"
	ParamReviewed        = "reviewed"
	ParamStartDate       = "startDate"
	ParamEndDate         = "endDate"
)

// Wire values for the reviewed parameter
const (
	WireReviewed   = "reviewed"
	WireUnreviewed = "unreviewed"
)

// Params carries the non-filter inputs of a list query
type Params struct {
	Page  int
	Limit int
	// UTCOffsetMinutes is the client offset east of UTC (IST is +330)
	UTCOffsetMinutes int
}

// LocalOffsetMinutes returns the offset of the process time zone at t
func LocalOffsetMinutes(t time.Time) int {
	_, secs := t.Zone()
	return secs / 60
}

// wireCustomFilter drops the value for operators that take none
type wireCustomFilter struct {
	ID       string  `json:"id"`
	Key      string  `json:"key"`
	Operator string  `json:"operator"`
	Value    *string `json:"value,omitempty"`
}

// Build serialises state and paging into query parameters
func Build(state types.FilterState, p Params) (url.Values, error) {
	if state.DateRange == types.DateCustom && !state.CustomRange.Complete() {
		return nil, ErrIncompleteCustomRange
	}

	custom, err := EncodeCustomFilters(state.CustomFilters)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set(ParamPage, strconv.Itoa(p.Page))
	q.Set(ParamLimit, strconv.Itoa(p.Limit))
	q.Set(ParamDateRange, string(state.DateRange))
	q.Set(ParamSearch, state.Search)
	q.Set(ParamTZOffset, strconv.Itoa(p.UTCOffsetMinutes))
	q.Set(ParamSortBy, state.Sort.Key)
	q.Set(ParamSortOrder, string(state.Sort.Direction))
	q.Set(ParamCustomFilters, custom)

	setUnlessAll(q, ParamDirection, string(state.Direction))
	if state.EmployeeID != "" {
		q.Set(ParamEmployeeID, state.EmployeeID)
	}
	setUnlessAll(q, ParamConnected, string(state.Connected))
	setUnlessAll(q, ParamNoteFilter, string(state.NoteFilter))
	setUnlessAll(q, ParamRecordingFilter, string(state.RecordingFilter))
	setUnlessAll(q, ParamDurationFilter, string(state.DurationFilter))
	setUnlessAll(q, ParamLabel, state.LabelFilter)
	setUnlessAll(q, ParamNameFilter, string(state.NameFilter))

	if reviewed, ok := ReviewedWireValue(state.Reviewed); ok {
		q.Set(ParamReviewed, reviewed)
	}

	if state.DateRange == types.DateCustom {
		q.Set(ParamStartDate, state.CustomRange.StartDate)
		q.Set(ParamEndDate, state.CustomRange.EndDate)
	}

	return q, nil
}

// ReviewedWireValue maps the 3-way UI value onto the 2-way wire value.
// "all" is omitted; "reviewed" is kept; anything else is "unreviewed".
func ReviewedWireValue(r types.ReviewedFilter) (string, bool) {
	switch r {
	case types.ReviewedAll:
		return "", false
	case types.ReviewedOnly:
		return WireReviewed, true
	default:
		return WireUnreviewed, true
	}
}

// EncodeCustomFilters renders the custom filter list as a JSON array
func EncodeCustomFilters(filters []types.CustomFilter) (string, error) {
	wire := make([]wireCustomFilter, 0, len(filters))
	for _, f := range filters {
		w := wireCustomFilter{ID: f.ID, Key: f.Key, Operator: f.Operator}
		if types.OperatorTakesValue(f.Operator) {
			v := f.Value
			w.Value = &v
		}
		wire = append(wire, w)
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("failed to encode custom filters: %w", err)
	}
	return string(data), nil
}

// Key returns a deterministic serialisation of q, suitable for equality checks
func Key(q url.Values) string {
	return q.Encode()
}

// FilterKey is Key without the paging parameters. Two states with the same
// FilterKey select the same rows.
func FilterKey(q url.Values) string {
	c := url.Values{}
	for k, v := range q {
		if k == ParamPage || k == ParamLimit {
			continue
		}
		c[k] = v
	}
	return c.Encode()
}

func setUnlessAll(q url.Values, key, value string) {
	if value == "" || value == types.FilterAll {
		return
	}
	q.Set(key, value)
}
