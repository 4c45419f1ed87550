package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

func TestBuildDefaults(t *testing.T) {
	q, err := Build(types.DefaultFilterState(), Params{Page: 1, Limit: 50, UTCOffsetMinutes: 330})
	require.NoError(t, err)

	assert.Equal(t, "1", q.Get(ParamPage))
	assert.Equal(t, "50", q.Get(ParamLimit))
	assert.Equal(t, "7days", q.Get(ParamDateRange))
	assert.Equal(t, "330", q.Get(ParamTZOffset))
	assert.Equal(t, "call_time", q.Get(ParamSortBy))
	assert.Equal(t, "DESC", q.Get(ParamSortOrder))
	assert.Equal(t, "[]", q.Get(ParamCustomFilters))

	// search is always present, even when empty
	_, ok := q[ParamSearch]
	assert.True(t, ok)

	for _, absent := range []string{
		ParamDirection, ParamEmployeeID, ParamConnected, ParamNoteFilter,
		ParamRecordingFilter, ParamDurationFilter, ParamLabel, ParamNameFilter,
		ParamReviewed, ParamStartDate, ParamEndDate,
	} {
		_, ok := q[absent]
		assert.False(t, ok, "expected %s to be omitted", absent)
	}
}

func TestBuildSparseFilters(t *testing.T) {
	state := types.DefaultFilterState()
	state.Direction = types.DirectionMissed
	state.EmployeeID = "12"
	state.Connected = types.ConnectedNone
	state.NoteFilter = types.NoteHasPersonNote
	state.RecordingFilter = types.RecordingPendingUpload
	state.DurationFilter = types.Duration1mTo5m
	state.LabelFilter = "hot lead"
	state.NameFilter = types.NameNone

	q, err := Build(state, Params{Page: 2, Limit: 25})
	require.NoError(t, err)

	assert.Equal(t, "missed", q.Get(ParamDirection))
	assert.Equal(t, "12", q.Get(ParamEmployeeID))
	assert.Equal(t, "not_connected", q.Get(ParamConnected))
	assert.Equal(t, "has_person_note", q.Get(ParamNoteFilter))
	assert.Equal(t, "pending_upload", q.Get(ParamRecordingFilter))
	assert.Equal(t, "1m_to_5m", q.Get(ParamDurationFilter))
	assert.Equal(t, "hot lead", q.Get(ParamLabel))
	assert.Equal(t, "no_name", q.Get(ParamNameFilter))
}

func TestReviewedCollapse(t *testing.T) {
	tests := []struct {
		in       types.ReviewedFilter
		want     string
		wantSent bool
	}{
		{types.ReviewedAll, "", false},
		{types.ReviewedOnly, WireReviewed, true},
		{types.ReviewedNotReviewed, WireUnreviewed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			state := types.DefaultFilterState()
			state.Reviewed = tt.in
			q, err := Build(state, Params{Page: 1, Limit: 50})
			require.NoError(t, err)

			_, sent := q[ParamReviewed]
			assert.Equal(t, tt.wantSent, sent)
			assert.Equal(t, tt.want, q.Get(ParamReviewed))
		})
	}
}

func TestBuildCustomRange(t *testing.T) {
	state := types.DefaultFilterState()
	state.DateRange = types.DateCustom

	_, err := Build(state, Params{Page: 1, Limit: 50})
	assert.ErrorIs(t, err, ErrIncompleteCustomRange)

	state.CustomRange.StartDate = "2024-01-01"
	_, err = Build(state, Params{Page: 1, Limit: 50})
	assert.ErrorIs(t, err, ErrIncompleteCustomRange)

	state.CustomRange.EndDate = "2024-01-31"
	q, err := Build(state, Params{Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, "custom", q.Get(ParamDateRange))
	assert.Equal(t, "2024-01-01", q.Get(ParamStartDate))
	assert.Equal(t, "2024-01-31", q.Get(ParamEndDate))
}

func TestCustomRangeIgnoredOutsideCustom(t *testing.T) {
	state := types.DefaultFilterState()
	state.CustomRange = types.CustomRange{StartDate: "2024-01-01"}

	q, err := Build(state, Params{Page: 1, Limit: 50})
	require.NoError(t, err)
	_, ok := q[ParamStartDate]
	assert.False(t, ok)
}

func TestEncodeCustomFilters(t *testing.T) {
	out, err := EncodeCustomFilters([]types.CustomFilter{
		{ID: "a", Key: "contact_name", Operator: types.OpContains, Value: "ravi"},
		{ID: "b", Key: "note", Operator: types.OpIsEmpty, Value: "leftover"},
	})
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)

	assert.Equal(t, "ravi", decoded[0]["value"])
	_, hasValue := decoded[1]["value"]
	assert.False(t, hasValue, "empty operators carry no value")
}

func TestKeyIsDeterministic(t *testing.T) {
	state := types.DefaultFilterState()
	state.Direction = types.DirectionInbound

	a, err := Build(state, Params{Page: 1, Limit: 50})
	require.NoError(t, err)
	b, err := Build(state.Clone(), Params{Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, Key(a), Key(b))

	c, err := Build(state, Params{Page: 2, Limit: 50})
	require.NoError(t, err)
	assert.NotEqual(t, Key(a), Key(c))
	assert.Equal(t, FilterKey(a), FilterKey(c))
}
