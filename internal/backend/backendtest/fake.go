// Package backendtest provides an in-process fake of the calls backend for tests.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/gorilla/mux"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

// Update is a recorded POST /calls?action=update
type Update struct {
	ID     string
	Fields map[string]any
}

// Fake serves the calls backend routes from memory
type Fake struct {
	mu sync.Mutex

	Calls      []types.Call
	Pagination *types.Pagination
	BareArray  bool
	Labels     []string
	Employees  []types.Employee
	Settings   map[string]json.RawMessage

	FailList     bool
	FailUpdate   bool
	RejectUpdate bool
	FailLabels   bool
	FailSettings bool

	ListQueries []url.Values
	Updates     []Update
	SavedBlobs  int

	server *httptest.Server
}

// New starts a fake backend. Call Close when done.
func New() *Fake {
	f := &Fake{Settings: make(map[string]json.RawMessage)}

	r := mux.NewRouter()
	r.HandleFunc("/calls", f.handleUpdate).Methods(http.MethodPost).Queries("action", "update", "id", "{id}")
	r.HandleFunc("/calls", f.handleLabels).Methods(http.MethodGet).Queries("action", "labels")
	r.HandleFunc("/calls", f.handleList).Methods(http.MethodGet)
	r.HandleFunc("/employees", f.handleEmployees).Methods(http.MethodGet)
	r.HandleFunc("/user_settings", f.handleGetSettings).Methods(http.MethodGet).Queries("key", "{key}")
	r.HandleFunc("/user_settings", f.handleSaveSettings).Methods(http.MethodPost)

	f.server = httptest.NewServer(r)
	return f
}

// URL returns the base URL of the fake
func (f *Fake) URL() string {
	return f.server.URL
}

// Close stops the server
func (f *Fake) Close() {
	f.server.Close()
}

// Set runs fn with the fake locked, for adjusting fixtures mid-test
func (f *Fake) Set(fn func(f *Fake)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// UpdateCount returns the number of update requests received
func (f *Fake) UpdateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Updates)
}

// ListCount returns the number of list requests received
func (f *Fake) ListCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ListQueries)
}

// LastListQuery returns the most recent list query, or nil
func (f *Fake) LastListQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ListQueries) == 0 {
		return nil
	}
	return f.ListQueries[len(f.ListQueries)-1]
}

// SavedSetting returns the stored blob for key
func (f *Fake) SavedSetting(key string) json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Settings[key]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *Fake) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ListQueries = append(f.ListQueries, r.URL.Query())
	if f.FailList {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list failed"})
		return
	}
	if f.BareArray {
		writeJSON(w, http.StatusOK, f.Calls)
		return
	}
	resp := map[string]any{"data": f.Calls}
	if f.Pagination != nil {
		resp["pagination"] = f.Pagination
	}
	writeJSON(w, http.StatusOK, resp)
}

func (f *Fake) handleUpdate(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad body"})
		return
	}
	f.Updates = append(f.Updates, Update{ID: mux.Vars(r)["id"], Fields: fields})

	switch {
	case f.FailUpdate:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "update failed"})
	case f.RejectUpdate:
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "not allowed"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (f *Fake) handleLabels(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailLabels {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "labels failed"})
		return
	}
	items := make([]map[string]string, 0, len(f.Labels))
	for _, l := range f.Labels {
		items = append(items, map[string]string{"label": l})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (f *Fake) handleEmployees(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.Employees)
}

func (f *Fake) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailSettings {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "settings failed"})
		return
	}
	blob, ok := f.Settings[mux.Vars(r)["key"]]
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": blob})
}

func (f *Fake) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailSettings {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "settings failed"})
		return
	}
	var body struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad body"})
		return
	}
	f.Settings[body.Key] = body.Value
	f.SavedBlobs++
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
