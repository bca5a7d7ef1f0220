package network

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/MRamiBalles/ByteLife/internal/engine"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
	"github.com/MRamiBalles/ByteLife/internal/platform/metrics"
)

// Message types sent to clients.
const (
	MsgTypeEvent = "EVENT"
	MsgTypeAck   = "ACK"
	MsgTypeError = "ERROR"
)

// Message is the envelope of everything the server pushes over a socket.
type Message struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload,omitempty"`
}

// HubOptions tune the hub. Zero values pick defaults.
type HubOptions struct {
	ClientSendBuffer     int
	MaxMessagesPerSecond int
	MaxClients           int
	// Loader restores players that are not live before ServeWS registers a new one. Optional.
	Loader engine.SessionLoader
}

// Hub maintains the set of active clients and routes each player's notifications to their sockets.
type Hub struct {
	clients    map[*Client]bool
	mu         sync.RWMutex
	logger     *logger.Logger
	metrics    *metrics.Collector
	dispatcher *Dispatcher
	engine     *engine.Engine
	opts       HubOptions
}

// NewHub initializes a new WebSocket Hub in front of eng.
func NewHub(eng *engine.Engine, log *logger.Logger, m *metrics.Collector, opts HubOptions) *Hub {
	if opts.ClientSendBuffer <= 0 {
		opts.ClientSendBuffer = 256
	}
	if opts.MaxMessagesPerSecond <= 0 {
		opts.MaxMessagesPerSecond = 10
	}
	if m == nil {
		m = metrics.New()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		logger:     log,
		metrics:    m,
		dispatcher: NewDispatcher(eng),
		engine:     eng,
		opts:       opts,
	}
}

// Run blocks until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		h.metrics.RecordWSConnection(-1)
	}
	h.mu.Unlock()
	h.logger.Info("websocket hub shutting down")
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.metrics.RecordWSConnection(1)
	h.logger.Info("websocket client connected", "player", c.playerID)
}

// remove forgets c and closes its send channel. Safe to call more than once.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.metrics.RecordWSConnection(-1)
		h.logger.Info("websocket client disconnected", "player", c.playerID)
	}
}

// Attach subscribes the hub to eventLog. Call the returned function to detach.
func (h *Hub) Attach(eventLog *events.EventLog) (detach func()) {
	return eventLog.Subscribe(h.deliver)
}

// deliver pushes an event to every socket of its player. It never blocks: a client whose buffer is
// full is dropped.
func (h *Hub) deliver(event events.GameEvent) {
	data, err := json.Marshal(Message{Type: MsgTypeEvent, Timestamp: event.Timestamp.Unix(), Payload: event})
	if err != nil {
		h.logger.Error("failed to serialize event for websocket", "event", event.ID, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.playerID != event.ActorID {
			continue
		}
		select {
		case client.send <- data:
			h.metrics.RecordWSMessage(false)
		default:
			h.metrics.RecordWSError()
			go h.remove(client)
		}
	}
}

// ConnectedPlayers lists the players with at least one open socket.
func (h *Hub) ConnectedPlayers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for c := range h.clients {
		if !seen[c.playerID] {
			seen[c.playerID] = true
			out = append(out, c.playerID)
		}
	}
	return out
}

// ClientCount is the number of open sockets.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
