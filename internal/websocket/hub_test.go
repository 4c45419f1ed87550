package websocket

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/auth"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/backend"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/backend/backendtest"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/config"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/session"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/storage"
)

func TestNewHub(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	if hub == nil {
		t.Fatal("expected hub to be created")
	}
	if hub.clients == nil {
		t.Error("expected clients map to be initialized")
	}
	if hub.broadcast == nil || hub.direct == nil {
		t.Error("expected message channels to be initialized")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("expected registration channels to be initialized")
	}
}

func TestHubClientCount(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}

	hub.mu.Lock()
	hub.clients[&Client{id: "test1", userID: "u1"}] = true
	hub.clients[&Client{id: "test2", userID: "u1"}] = true
	hub.clients[&Client{id: "test3", userID: "u2"}] = true
	hub.mu.Unlock()

	if hub.ClientCount() != 3 {
		t.Errorf("expected 3 clients, got %d", hub.ClientCount())
	}
	if hub.UserClientCount("u1") != 2 {
		t.Errorf("expected 2 clients for u1, got %d", hub.UserClientCount("u1"))
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	client := &Client{id: "test-client", hub: hub, send: make(chan []byte, 1)}

	hub.register <- client
	time.Sleep(10 * time.Millisecond)
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after register, got %d", hub.ClientCount())
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after unregister, got %d", hub.ClientCount())
	}
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func TestHubBroadcastToMultipleClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	client1 := &Client{id: "client1", userID: "u1", hub: hub, send: make(chan []byte, 10)}
	client2 := &Client{id: "client2", userID: "u2", hub: hub, send: make(chan []byte, 10)}
	hub.register <- client1
	hub.register <- client2

	message := []byte("test broadcast")
	hub.Broadcast(message)

	for _, c := range []*Client{client1, client2} {
		if got := receive(t, c); string(got) != string(message) {
			t.Errorf("%s expected %s, got %s", c.id, message, got)
		}
	}
}

func TestHubSendToUser(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	mine1 := &Client{id: "a", userID: "u1", hub: hub, send: make(chan []byte, 10)}
	mine2 := &Client{id: "b", userID: "u1", hub: hub, send: make(chan []byte, 10)}
	other := &Client{id: "c", userID: "u2", hub: hub, send: make(chan []byte, 10)}
	hub.register <- mine1
	hub.register <- mine2
	hub.register <- other

	hub.SendToUser("u1", []byte("hello"))

	if got := receive(t, mine1); string(got) != "hello" {
		t.Errorf("expected first connection to receive, got %q", got)
	}
	if got := receive(t, mine2); string(got) != "hello" {
		t.Errorf("expected second connection to receive, got %q", got)
	}
	if got := receive(t, other); got != nil {
		t.Errorf("expected other user to receive nothing, got %q", got)
	}
}

func TestHubFullBufferDropsClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	slow := &Client{id: "slow", userID: "u1", hub: hub, send: make(chan []byte)}
	hub.register <- slow
	hub.SendToUser("u1", []byte("x"))
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("expected slow client dropped, got %d clients", hub.ClientCount())
	}
}

func TestPublishEncodesEvent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	c := &Client{id: "a", userID: "u1", hub: hub, send: make(chan []byte, 10)}
	hub.register <- c

	hub.Publish(zerolog.Nop())("u1", session.Event{Type: session.EventNotice, Data: map[string]bool{"success": true}})

	var ev struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(receive(t, c), &ev); err != nil || ev.Type != session.EventNotice {
		t.Errorf("expected notice event, got %+v err=%v", ev, err)
	}
}

func TestHandlerSendsSnapshotAndEvents(t *testing.T) {
	t.Setenv("SKIP_AUTH", "true")

	fake := backendtest.New()
	defer fake.Close()

	hub := NewHub(zerolog.Nop())
	go hub.Run()

	client := backend.NewClient(fake.URL(), "", time.Second, zerolog.Nop())
	sessions := session.NewManager(client, storage.NewMemoryStore(), session.Options{Debounce: time.Hour}, zerolog.Nop())
	sessions.OnEvent = hub.Publish(zerolog.Nop())

	cfg := &config.Config{
		AllowedOrigins: []string{"*"},
		PongWait:       time.Minute,
		PingPeriod:     time.Minute,
		WriteWait:      time.Second,
		MaxMessageSize: 512,
	}
	h := NewHandler(hub, sessions, cfg, zerolog.Nop())
	srv := httptest.NewServer(auth.Middleware(h))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first session.Event
	if err := conn.ReadJSON(&first); err != nil || first.Type != session.EventSnapshot {
		t.Fatalf("expected snapshot first, got %+v err=%v", first, err)
	}

	if err := conn.WriteJSON(map[string]string{"type": MessageRefresh}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var next session.Event
	if err := conn.ReadJSON(&next); err != nil || next.Type != session.EventFetch {
		t.Errorf("expected fetch event after refresh, got %+v err=%v", next, err)
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewHandler(NewHub(zerolog.Nop()), nil, &config.Config{AllowedOrigins: []string{"http://localhost:5173"}}, zerolog.Nop())

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := h.checkOrigin(r); got != tt.want {
			t.Errorf("origin %q: expected %v, got %v", tt.origin, tt.want, got)
		}
	}
}
