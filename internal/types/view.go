package types

// Filter bar keys, in default order
var DefaultFilterKeys = []string{
	"direction",
	"date",
	"reviewed",
	"connected",
	"note",
	"recording",
	"duration",
	"label",
	"name",
	"employee",
}

// DefaultVisibleFilterKeys are shown on a fresh install
var DefaultVisibleFilterKeys = []string{
	"direction",
	"date",
	"reviewed",
	"connected",
	"label",
	"employee",
}

// Table column keys, in default order
var DefaultColumnKeys = []string{
	"contact",
	"call_time",
	"type",
	"duration",
	"labels",
	"note",
	"person_note",
	"recording",
	"employee",
	"device",
	"reviewed",
}

// DefaultVisibleColumnKeys are shown on a fresh install
var DefaultVisibleColumnKeys = []string{
	"contact",
	"call_time",
	"type",
	"duration",
	"labels",
	"note",
	"recording",
	"employee",
}

// DefaultColumnWidths is the starting pixel width per column
var DefaultColumnWidths = map[string]int{
	"contact":     220,
	"call_time":   160,
	"type":        110,
	"duration":    100,
	"labels":      180,
	"note":        240,
	"person_note": 240,
	"recording":   140,
	"employee":    150,
	"device":      150,
	"reviewed":    100,
}

// MinColumnWidth is the lower clamp for resized columns. There is no upper clamp.
const MinColumnWidth = 50

// ContactColumnOptions toggles the sub-lines of the contact column
type ContactColumnOptions struct {
	ShowPhone    bool `json:"showPhone"`
	ShowReview   bool `json:"showReview"`
	ShowDuration bool `json:"showDuration"`
}

// DefaultContactColumnOptions shows the phone number only
func DefaultContactColumnOptions() ContactColumnOptions {
	return ContactColumnOptions{ShowPhone: true}
}
