package types

// FilterAll is the "no constraint" sentinel shared by every enumerated filter
const FilterAll = "all"

// Direction filters calls by their type
type Direction string

const (
	DirectionAll      Direction = "all"
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionMissed   Direction = "missed"
	DirectionRejected Direction = "rejected"
	DirectionBlocked  Direction = "blocked"
)

// ReviewedFilter is the 3-way review status shown in the UI
type ReviewedFilter string

const (
	ReviewedAll         ReviewedFilter = "all"
	ReviewedOnly        ReviewedFilter = "reviewed"
	ReviewedNotReviewed ReviewedFilter = "not_reviewed"
)

// ConnectedFilter separates answered from unanswered calls
type ConnectedFilter string

const (
	ConnectedAll  ConnectedFilter = "all"
	ConnectedYes  ConnectedFilter = "connected"
	ConnectedNone ConnectedFilter = "not_connected"
)

// NoteFilter filters on call and person notes
type NoteFilter string

const (
	NoteAll           NoteFilter = "all"
	NoteHasCallNote   NoteFilter = "has_call_note"
	NoteNoCallNote    NoteFilter = "no_call_note"
	NoteHasPersonNote NoteFilter = "has_person_note"
	NoteNoPersonNote  NoteFilter = "no_person_note"
	NoteHasAnyNote    NoteFilter = "has_any_note"
)

// RecordingFilter filters on recording presence and upload state
type RecordingFilter string

const (
	RecordingAll           RecordingFilter = "all"
	RecordingHas           RecordingFilter = "has_recording"
	RecordingNone          RecordingFilter = "no_recording"
	RecordingPendingUpload RecordingFilter = "pending_upload"
)

// DurationFilter buckets calls by talk time
type DurationFilter string

const (
	DurationAll      DurationFilter = "all"
	DurationUnder30s DurationFilter = "under_30s"
	Duration30sTo1m  DurationFilter = "30s_to_1m"
	Duration1mTo5m   DurationFilter = "1m_to_5m"
	DurationOver5m   DurationFilter = "over_5m"
)

// NameFilter filters on whether the contact has a name
type NameFilter string

const (
	NameAll  NameFilter = "all"
	NameHas  NameFilter = "has_name"
	NameNone NameFilter = "no_name"
)

// DateRange selects the time window of the list
type DateRange string

const (
	DateToday  DateRange = "today"
	Date7Days  DateRange = "7days"
	Date30Days DateRange = "30days"
	Date90Days DateRange = "90days"
	DateCustom DateRange = "custom"
	DateAll    DateRange = "all"
)

// SortDirection is the wire sort order
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// Valid value sets, used by setters and by settings loading
var (
	ValidDirections = map[Direction]bool{
		DirectionAll: true, DirectionInbound: true, DirectionOutbound: true,
		DirectionMissed: true, DirectionRejected: true, DirectionBlocked: true,
	}
	ValidReviewed = map[ReviewedFilter]bool{
		ReviewedAll: true, ReviewedOnly: true, ReviewedNotReviewed: true,
	}
	ValidConnected = map[ConnectedFilter]bool{
		ConnectedAll: true, ConnectedYes: true, ConnectedNone: true,
	}
	ValidNoteFilters = map[NoteFilter]bool{
		NoteAll: true, NoteHasCallNote: true, NoteNoCallNote: true,
		NoteHasPersonNote: true, NoteNoPersonNote: true, NoteHasAnyNote: true,
	}
	ValidRecordingFilters = map[RecordingFilter]bool{
		RecordingAll: true, RecordingHas: true, RecordingNone: true, RecordingPendingUpload: true,
	}
	ValidDurationFilters = map[DurationFilter]bool{
		DurationAll: true, DurationUnder30s: true, Duration30sTo1m: true,
		Duration1mTo5m: true, DurationOver5m: true,
	}
	ValidNameFilters = map[NameFilter]bool{
		NameAll: true, NameHas: true, NameNone: true,
	}
	ValidDateRanges = map[DateRange]bool{
		DateToday: true, Date7Days: true, Date30Days: true,
		Date90Days: true, DateCustom: true, DateAll: true,
	}
)

// CustomFilterFields is the field registry for user-defined filters, in display order
var CustomFilterFields = []string{
	"contact_name",
	"phone_number",
	"note",
	"person_note",
	"labels",
	"employee_name",
	"device_phone",
	"duration",
	"type",
	"upload_status",
}

// Custom filter operators
const (
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpStartsWith  = "starts_with"
	OpEndsWith    = "ends_with"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpIsEmpty     = "is_empty"
	OpIsNotEmpty  = "is_not_empty"
)

// CustomFilterOperators is the operator registry for user-defined filters
var CustomFilterOperators = []string{
	OpContains, OpNotContains, OpEquals, OpNotEquals, OpStartsWith,
	OpEndsWith, OpGreaterThan, OpLessThan, OpIsEmpty, OpIsNotEmpty,
}

// OperatorTakesValue reports whether op compares against a value
func OperatorTakesValue(op string) bool {
	return op != OpIsEmpty && op != OpIsNotEmpty
}

// IsCustomFilterField reports whether key is in the field registry
func IsCustomFilterField(key string) bool {
	for _, f := range CustomFilterFields {
		if f == key {
			return true
		}
	}
	return false
}

// IsCustomFilterOperator reports whether op is in the operator registry
func IsCustomFilterOperator(op string) bool {
	for _, o := range CustomFilterOperators {
		if o == op {
			return true
		}
	}
	return false
}

// CustomRange is the start/end pair used when DateRange is custom.
// Both must be set before a fetch is issued.
type CustomRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Complete reports whether both ends are set
func (r CustomRange) Complete() bool {
	return r.StartDate != "" && r.EndDate != ""
}

// Sort is the list ordering
type Sort struct {
	Key       string        `json:"key"`
	Direction SortDirection `json:"direction"`
}

// CustomFilter is a user-defined field/operator/value triple
type CustomFilter struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Operator string `json:"operator"`
	Value    string `json:"value,omitempty"`
}

// Segment is a named, partial snapshot of the filter state
type Segment struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Filters        []CustomFilter `json:"filters"`
	DateRange      DateRange      `json:"dateRange"`
	Direction      Direction      `json:"direction"`
	ReviewedFilter ReviewedFilter `json:"reviewedFilter"`
}

// Clone returns a deep copy
func (s Segment) Clone() Segment {
	s.Filters = CloneCustomFilters(s.Filters)
	return s
}

// FilterState is every value that feeds the list query
type FilterState struct {
	Direction       Direction       `json:"direction"`
	Reviewed        ReviewedFilter  `json:"reviewed"`
	Connected       ConnectedFilter `json:"connected"`
	NoteFilter      NoteFilter      `json:"noteFilter"`
	RecordingFilter RecordingFilter `json:"recordingFilter"`
	DurationFilter  DurationFilter  `json:"durationFilter"`
	LabelFilter     string          `json:"labelFilter"`
	NameFilter      NameFilter      `json:"nameFilter"`
	EmployeeID      string          `json:"employeeId"`
	DateRange       DateRange       `json:"dateRange"`
	CustomRange     CustomRange     `json:"customRange"`
	Sort            Sort            `json:"sort"`
	Search          string          `json:"search"`
	CustomFilters   []CustomFilter  `json:"customFilters"`
}

// DefaultFilterState returns the baseline every field resets to
func DefaultFilterState() FilterState {
	return FilterState{
		Direction:       DirectionAll,
		Reviewed:        ReviewedAll,
		Connected:       ConnectedAll,
		NoteFilter:      NoteAll,
		RecordingFilter: RecordingAll,
		DurationFilter:  DurationAll,
		LabelFilter:     FilterAll,
		NameFilter:      NameAll,
		EmployeeID:      "",
		DateRange:       Date7Days,
		CustomRange:     CustomRange{},
		Sort:            Sort{Key: "call_time", Direction: SortDesc},
		Search:          "",
		CustomFilters:   []CustomFilter{},
	}
}

// Clone returns a deep copy
func (f FilterState) Clone() FilterState {
	f.CustomFilters = CloneCustomFilters(f.CustomFilters)
	return f
}

// CloneCustomFilters copies a custom filter list, never returning nil
func CloneCustomFilters(in []CustomFilter) []CustomFilter {
	out := make([]CustomFilter, len(in))
	copy(out, in)
	return out
}
