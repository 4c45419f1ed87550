package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/auth"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/config"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/session"
)

// inbound client messages
const (
	MessageRelease = "release"
	MessageRefresh = "refresh"
)

// Handler handles WebSocket upgrade requests
type Handler struct {
	hub      *Hub
	sessions *session.Manager
	config   *config.Config
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, sessions *session.Manager, cfg *config.Config, logger zerolog.Logger) *Handler {
	h := &Handler{
		hub:      hub,
		sessions: sessions,
		config:   cfg,
		logger:   logger.With().Str("component", "ws").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the connection and attaches it to the user's session
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sess := h.sessions.Get(r.Context(), userID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(h.hub, conn, h.config, userID, func(msg []byte) {
		h.handleMessage(sess, msg)
	}, h.logger)

	// first frame is the full state, queued before the hub can close send
	if data, err := json.Marshal(session.Event{Type: session.EventSnapshot, Data: sess.Snapshot()}); err == nil {
		client.send <- data
	}

	h.hub.register <- client
	client.Start()
}

func (h *Handler) handleMessage(sess *session.Session, msg []byte) {
	var in struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &in); err != nil {
		h.logger.Debug().Err(err).Msg("ignoring malformed client message")
		return
	}

	switch in.Type {
	case MessageRelease:
		sess.Release()
	case MessageRefresh:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sess.Refresh(ctx)
	default:
		h.logger.Debug().Str("type", in.Type).Msg("unknown client message")
	}
}
