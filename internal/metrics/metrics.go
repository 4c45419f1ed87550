package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Mutation outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Fetch metrics
	FetchesTotal          int64
	FetchErrorsTotal      int64
	FetchesWithheldTotal  int64
	StaleResponsesTotal   int64
	lastFetchDuration     time.Duration
	AutoRefreshCycles     int64
	AutoRefreshErrorTotal int64

	// Mutation metrics
	mutations map[string]map[string]int64 // field -> outcome -> count

	// Settings metrics
	LocalWritesTotal      int64
	LocalWriteErrorsTotal int64
	RemoteSavesTotal      int64
	RemoteSaveErrorsTotal int64

	// WebSocket metrics
	WebSocketConnectionsTotal    int64
	WebSocketDisconnectionsTotal int64
	WebSocketMessagesTotal       int64
	WebSocketErrorsTotal         int64
	activeConnections            int64

	// Session metrics
	activeSessions int

	// HTTP metrics
	httpRequestsTotal    map[string]map[int]int64 // endpoint -> status -> count
	httpRequestDurations map[string][]float64     // endpoint -> durations

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			mutations:            make(map[string]map[string]int64),
			httpRequestsTotal:    make(map[string]map[int]int64),
			httpRequestDurations: make(map[string][]float64),
			startTime:            time.Now(),
		}
	})
	return instance
}

// RecordFetch records a completed list fetch
func (m *Metrics) RecordFetch(duration time.Duration, err error) {
	m.mu.Lock()
	m.FetchesTotal++
	if err != nil {
		m.FetchErrorsTotal++
	}
	m.lastFetchDuration = duration
	m.mu.Unlock()
}

// RecordFetchWithheld counts a fetch skipped because its precondition failed
func (m *Metrics) RecordFetchWithheld() {
	m.mu.Lock()
	m.FetchesWithheldTotal++
	m.mu.Unlock()
}

// RecordStaleResponse counts a response discarded because a newer fetch was issued
func (m *Metrics) RecordStaleResponse() {
	m.mu.Lock()
	m.StaleResponsesTotal++
	m.mu.Unlock()
}

// RecordAutoRefresh records one auto refresh cycle
func (m *Metrics) RecordAutoRefresh(errors int) {
	m.mu.Lock()
	m.AutoRefreshCycles++
	m.AutoRefreshErrorTotal += int64(errors)
	m.mu.Unlock()
}

// RecordMutation records an optimistic edit outcome
func (m *Metrics) RecordMutation(field, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mutations[field] == nil {
		m.mutations[field] = make(map[string]int64)
	}
	m.mutations[field][outcome]++
}

// MutationCount returns the count for field and outcome
func (m *Metrics) MutationCount(field, outcome string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mutations[field][outcome]
}

// RecordLocalWrite records a local settings write
func (m *Metrics) RecordLocalWrite(err error) {
	m.mu.Lock()
	m.LocalWritesTotal++
	if err != nil {
		m.LocalWriteErrorsTotal++
	}
	m.mu.Unlock()
}

// RecordRemoteSave records a remote settings save
func (m *Metrics) RecordRemoteSave(err error) {
	m.mu.Lock()
	m.RemoteSavesTotal++
	if err != nil {
		m.RemoteSaveErrorsTotal++
	}
	m.mu.Unlock()
}

// RecordWebSocketConnect increments connection counters
func (m *Metrics) RecordWebSocketConnect() {
	m.mu.Lock()
	m.WebSocketConnectionsTotal++
	m.activeConnections++
	m.mu.Unlock()
}

// RecordWebSocketDisconnect increments disconnection counter
func (m *Metrics) RecordWebSocketDisconnect() {
	m.mu.Lock()
	m.WebSocketDisconnectionsTotal++
	m.activeConnections--
	m.mu.Unlock()
}

// RecordWebSocketMessage increments message counter
func (m *Metrics) RecordWebSocketMessage() {
	m.mu.Lock()
	m.WebSocketMessagesTotal++
	m.mu.Unlock()
}

// RecordWebSocketError increments WebSocket error counter
func (m *Metrics) RecordWebSocketError() {
	m.mu.Lock()
	m.WebSocketErrorsTotal++
	m.mu.Unlock()
}

// SetActiveSessions sets the live session gauge
func (m *Metrics) SetActiveSessions(n int) {
	m.mu.Lock()
	m.activeSessions = n
	m.mu.Unlock()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++

	// Keep last 100 durations for percentile calculation
	if len(m.httpRequestDurations[endpoint]) >= 100 {
		m.httpRequestDurations[endpoint] = m.httpRequestDurations[endpoint][1:]
	}
	m.httpRequestDurations[endpoint] = append(m.httpRequestDurations[endpoint], duration.Seconds())
}

// GetActiveConnections returns current WebSocket connections
func (m *Metrics) GetActiveConnections() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeConnections
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		write("calltrack_uptime_seconds", time.Since(m.startTime).Seconds())

		// Fetch metrics
		write("calltrack_fetches_total", m.FetchesTotal)
		write("calltrack_fetch_errors_total", m.FetchErrorsTotal)
		write("calltrack_fetches_withheld_total", m.FetchesWithheldTotal)
		write("calltrack_stale_responses_total", m.StaleResponsesTotal)
		write("calltrack_fetch_duration_seconds", m.lastFetchDuration.Seconds())
		write("calltrack_auto_refresh_cycles_total", m.AutoRefreshCycles)
		write("calltrack_auto_refresh_errors_total", m.AutoRefreshErrorTotal)

		for field, outcomes := range m.mutations {
			for outcome, count := range outcomes {
				write("calltrack_mutations_total", count, "field", field, "outcome", outcome)
			}
		}

		// Settings metrics
		write("calltrack_local_writes_total", m.LocalWritesTotal)
		write("calltrack_local_write_errors_total", m.LocalWriteErrorsTotal)
		write("calltrack_remote_saves_total", m.RemoteSavesTotal)
		write("calltrack_remote_save_errors_total", m.RemoteSaveErrorsTotal)

		// WebSocket metrics
		write("calltrack_websocket_connections_total", m.WebSocketConnectionsTotal)
		write("calltrack_websocket_disconnections_total", m.WebSocketDisconnectionsTotal)
		write("calltrack_websocket_active_connections", m.activeConnections)
		write("calltrack_websocket_messages_total", m.WebSocketMessagesTotal)
		write("calltrack_websocket_errors_total", m.WebSocketErrorsTotal)

		write("calltrack_active_sessions", m.activeSessions)

		// HTTP metrics
		for endpoint, statusCodes := range m.httpRequestsTotal {
			for status, count := range statusCodes {
				write("calltrack_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
