package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Call is a single row of the calls list as served by the backend
type Call struct {
	ID           string `json:"id"`
	PhoneNumber  string `json:"phone_number"`
	ContactName  string `json:"contact_name"`
	CallTime     string `json:"call_time"` // as sent; may lack a zone suffix
	CallTimeUTC  string `json:"call_time_utc,omitempty"` // RFC 3339, empty when unparseable
	Type         string `json:"type"`
	Duration     int    `json:"duration"` // seconds
	Reviewed     bool   `json:"reviewed"`
	IsLiked      bool   `json:"is_liked"`
	Labels       string `json:"labels"` // comma-joined, no escaping
	Note         string `json:"note"`
	PersonNote   string `json:"person_note"`
	RecordingURL string `json:"recording_url"`
	UploadStatus string `json:"upload_status"`
	EmployeeName string `json:"employee_name"`
	DevicePhone  string `json:"device_phone"`
}

// UnmarshalJSON accepts the loose shapes the PHP backend emits:
// numeric or string ids, "0"/"1"/0/1/true booleans, null strings.
func (c *Call) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           json.RawMessage `json:"id"`
		PhoneNumber  *string         `json:"phone_number"`
		ContactName  *string         `json:"contact_name"`
		CallTime     *string         `json:"call_time"`
		Type         *string         `json:"type"`
		Duration     json.RawMessage `json:"duration"`
		Reviewed     json.RawMessage `json:"reviewed"`
		IsLiked      json.RawMessage `json:"is_liked"`
		Labels       *string         `json:"labels"`
		Note         *string         `json:"note"`
		PersonNote   *string         `json:"person_note"`
		RecordingURL *string         `json:"recording_url"`
		UploadStatus *string         `json:"upload_status"`
		EmployeeName *string         `json:"employee_name"`
		DevicePhone  *string         `json:"device_phone"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := looseString(raw.ID)
	if err != nil {
		return fmt.Errorf("call id: %w", err)
	}
	duration, err := looseInt(raw.Duration)
	if err != nil {
		return fmt.Errorf("call %s duration: %w", id, err)
	}
	if duration < 0 {
		duration = 0
	}
	reviewed, err := looseBool(raw.Reviewed)
	if err != nil {
		return fmt.Errorf("call %s reviewed: %w", id, err)
	}
	liked, err := looseBool(raw.IsLiked)
	if err != nil {
		return fmt.Errorf("call %s is_liked: %w", id, err)
	}

	callTime := deref(raw.CallTime)
	var callTimeUTC string
	if t, err := ParseCallTime(callTime); err == nil {
		callTimeUTC = t.Format(time.RFC3339)
	}

	*c = Call{
		ID:           id,
		PhoneNumber:  deref(raw.PhoneNumber),
		ContactName:  deref(raw.ContactName),
		CallTime:     callTime,
		CallTimeUTC:  callTimeUTC,
		Type:         deref(raw.Type),
		Duration:     duration,
		Reviewed:     reviewed,
		IsLiked:      liked,
		Labels:       deref(raw.Labels),
		Note:         deref(raw.Note),
		PersonNote:   deref(raw.PersonNote),
		RecordingURL: deref(raw.RecordingURL),
		UploadStatus: deref(raw.UploadStatus),
		EmployeeName: deref(raw.EmployeeName),
		DevicePhone:  deref(raw.DevicePhone),
	}
	return nil
}

var callTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
}

// ParseCallTime parses a backend timestamp. Values without a zone suffix are UTC.
func ParseCallTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty call time")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range callTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised call time %q", s)
}

// Employee is an entry of GET /employees
type Employee struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// UnmarshalJSON tolerates numeric ids
func (e *Employee) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    json.RawMessage `json:"id"`
		Name  *string         `json:"name"`
		Phone *string         `json:"phone"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := looseString(raw.ID)
	if err != nil {
		return fmt.Errorf("employee id: %w", err)
	}
	*e = Employee{ID: id, Name: deref(raw.Name), Phone: deref(raw.Phone)}
	return nil
}

// Pagination is the server-reported paging metadata of a list response.
// A zero TotalPages means the server did not say.
type Pagination struct {
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// UnmarshalJSON accepts numbers, numeric strings and nulls
func (p *Pagination) UnmarshalJSON(data []byte) error {
	var raw struct {
		Total      json.RawMessage `json:"total"`
		TotalPages json.RawMessage `json:"total_pages"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	total, err := looseInt(raw.Total)
	if err != nil {
		return fmt.Errorf("pagination total: %w", err)
	}
	pages, err := looseInt(raw.TotalPages)
	if err != nil {
		return fmt.Errorf("pagination total_pages: %w", err)
	}
	*p = Pagination{Total: max(total, 0), TotalPages: max(pages, 0)}
	return nil
}

// CallPage is one page of the calls list. Pagination is nil when the
// server omitted it or answered with the legacy bare array.
type CallPage struct {
	Calls      []Call      `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func looseString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func looseInt(raw json.RawMessage) (int, error) {
	s, err := looseString(raw)
	if err != nil || s == "" {
		return 0, err
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func looseBool(raw json.RawMessage) (bool, error) {
	if isNull(raw) {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	s, err := looseString(raw)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no":
		return false, nil
	case "1", "true", "yes":
		return true, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}
