package daemon

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"vidslides/internal/api"
	"vidslides/internal/logging"
	"vidslides/internal/workflow"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	clientBuffer   = 64
)

// EventHub broadcasts job events to websocket subscribers. It satisfies
// workflow.EventSink.
type EventHub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*eventClient]struct{}
	closed  bool
}

type eventClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewEventHub constructs an empty hub.
func NewEventHub(logger *slog.Logger) *EventHub {
	return &EventHub{
		logger: logging.NewComponentLogger(logger, "event-hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		clients: make(map[*eventClient]struct{}),
	}
}

// PublishJobEvent queues event for every subscriber. Subscribers whose buffer
// is full are disconnected rather than blocking the coordinator.
func (h *EventHub) PublishJobEvent(event workflow.JobEvent) {
	payload, err := json.Marshal(api.FromJobEvent(event))
	if err != nil {
		h.logger.Warn("failed to encode job event", logging.Error(err))
		return
	}
	var slow []*eventClient
	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()
	for _, client := range slow {
		h.logger.Warn("dropping slow event subscriber",
			logging.String(logging.FieldEventType, "subscriber_dropped"),
			logging.String("client_id", client.id),
		)
		h.unregister(client)
	}
}

// ServeHTTP upgrades the request and streams events until the peer leaves.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		h.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	client := &eventClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}
	if !h.register(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.logger.Debug("event subscriber connected", logging.String("client_id", client.id))
	go h.writePump(client)
	h.readPump(client)
}

// ClientCount reports connected subscribers.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*eventClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	for _, client := range clients {
		h.unregister(client)
	}
}

func (h *EventHub) register(client *eventClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[client] = struct{}{}
	return true
}

func (h *EventHub) unregister(client *eventClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	client.once.Do(func() {
		close(client.send)
	})
}

// readPump only services control frames; subscribers never send data.
func (h *EventHub) readPump(client *eventClient) {
	defer func() {
		h.unregister(client)
		_ = client.conn.Close()
	}()
	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Debug("event subscriber read error", logging.String("client_id", client.id), logging.Error(err))
			}
			return
		}
	}
}

func (h *EventHub) writePump(client *eventClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
