package network

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one player's websocket connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	playerID string
	limiter  *rate.Limiter
}

// NewClient creates a new WebSocket client bound to playerID.
func NewClient(hub *Hub, conn *websocket.Conn, playerID string) *Client {
	perSecond := hub.opts.MaxMessagesPerSecond
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, hub.opts.ClientSendBuffer),
		playerID: playerID,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

// ServeWS upgrades the request and starts the client's pumps.
// GET /ws?player_id=XXX&name=YYY restores the player's saved session or registers the player on first connect.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		http.Error(w, "missing player_id", http.StatusBadRequest)
		return
	}
	if h.opts.MaxClients > 0 && h.ClientCount() >= h.opts.MaxClients {
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}
	if h.opts.Loader != nil {
		if _, err := h.engine.Reload(r.Context(), h.opts.Loader, playerID); err != nil {
			h.logger.Warn("session reload failed", "player", playerID, "error", err)
		}
	}
	if _, err := h.engine.Session(playerID); err != nil {
		name := r.URL.Query().Get("name")
		if name == "" {
			name = playerID
		}
		if _, err := h.engine.Register(playerID, name); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := NewClient(h, conn, playerID)
	h.add(client)

	go client.WritePump()
	go client.ReadPump()
}

// ReadPump pumps actions from the websocket connection to the engine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Warn("websocket read failed", "player", c.playerID, "error", err)
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.reply(Message{Type: MsgTypeError, Payload: errorPayload(err)})
			continue
		}
		c.handlePlayerAction(action)
	}
}

func (c *Client) handlePlayerAction(action PlayerAction) {
	if !c.limiter.Allow() {
		c.hub.logger.Warn("rate limit exceeded", "player", c.playerID, "action", action.Type)
		c.reply(Message{Type: MsgTypeError, RequestID: action.RequestID, Payload: ErrorPayload{Code: "RATE_LIMITED", Reason: "too many actions"}})
		return
	}

	result, err := c.hub.dispatcher.Dispatch(c.playerID, action)
	if err != nil {
		c.reply(Message{Type: MsgTypeError, RequestID: action.RequestID, Payload: errorPayload(err)})
		return
	}
	c.hub.logger.Event("PLAYER_ACTION", c.playerID, action.Type)
	c.reply(Message{Type: MsgTypeAck, RequestID: action.RequestID, Payload: result})
}

// reply queues a direct response. A full buffer drops the reply rather than blocking the read loop.
func (c *Client) reply(m Message) {
	m.Timestamp = time.Now().Unix()
	data, err := json.Marshal(m)
	if err != nil {
		c.hub.logger.Error("failed to serialize reply", "player", c.playerID, "error", err)
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
		c.hub.metrics.RecordWSMessage(false)
	default:
		c.hub.metrics.RecordWSError()
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
