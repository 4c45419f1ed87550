package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/config"
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	id     string
	userID string // routing key for SendToUser
	hub    *Hub
	conn   *websocket.Conn

	// outbound events, one JSON object each
	send      chan []byte
	onMessage func([]byte)

	config *config.Config
	logger zerolog.Logger
}

// NewClient creates a new Client for userID
func NewClient(hub *Hub, conn *websocket.Conn, cfg *config.Config, userID string, onMessage func([]byte), logger zerolog.Logger) *Client {
	clientID := uuid.New().String()
	return &Client{
		id:        clientID,
		userID:    userID,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		onMessage: onMessage,
		config:    cfg,
		logger:    logger.With().Str("client_id", clientID).Str("user", userID).Logger(),
	}
}

// readPump hands inbound frames to onMessage. It is the only reader.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("websocket read error")
			}
			break
		}
		c.logger.Debug().Str("message", string(message)).Msg("received message from client")
		if c.onMessage != nil {
			c.onMessage(message)
		}
	}
}

// writePump drains send and keeps the connection alive with pings. It is
// the only writer.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start starts the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
