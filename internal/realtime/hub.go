// Package realtime pushes change notifications to websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gofiber/websocket/v2"

	"wendle/internal/changefeed"
	"wendle/internal/observability"
)

const (
	maxConnsPerUser = 8
	maxTotalConns   = 10000
)

// Hub tracks websocket clients and fans change events out to all of them.
// Anonymous clients register under user ID 0.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	subs       []*changefeed.Subscription
	broker     *changefeed.Broker
	wsLog      *observability.WSLogger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[uint]map[*Client]struct{}),
		wsLog: observability.NewWSLogger("changes hub"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "changes hub" }

// changedEvent is the wire shape every connected client receives when a
// table changes.
type changedEvent struct {
	Type    string            `json:"type"`
	Payload changefeed.Change `json:"payload"`
}

// AttachBroker subscribes the hub to every table's changes. Each event is
// broadcast to all connected clients, which re-pull whatever they render.
func (h *Hub) AttachBroker(broker *changefeed.Broker) {
	tables := []string{
		changefeed.TableProfiles,
		changefeed.TablePosts,
		changefeed.TableLikes,
		changefeed.TableComments,
		changefeed.TableFollows,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.broker = broker
	for _, table := range tables {
		h.subs = append(h.subs, broker.Subscribe(table, changefeed.Filter{}, func(ch changefeed.Change) {
			data, err := json.Marshal(changedEvent{Type: "changed", Payload: ch})
			if err != nil {
				return
			}
			h.BroadcastAll(data)
		}))
	}
}

// Register adds a connection for a user. It fails when connection limits
// are reached.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if userID != 0 && len(m) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	h.wsLog.LogConnect(context.Background(), userID)
	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// UnregisterClient drops a connection. Safe to call more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.conns[client.UserID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			observability.WebSocketConnectionsTotal.Dec()
			h.wsLog.LogDisconnect(context.Background(), client.UserID, "unregistered")
		}
		if len(m) == 0 {
			delete(h.conns, client.UserID)
		}
	}
}

// BroadcastAll sends data to every connected client.
func (h *Hub) BroadcastAll(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// ConnCount reports how many connections are currently registered.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// Shutdown unsubscribes from the change feed and closes every connection.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	subs := h.subs
	h.subs = nil
	broker := h.broker
	conns := h.conns
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	h.mu.Unlock()

	if broker != nil {
		for _, sub := range subs {
			broker.Unsubscribe(sub)
		}
	}

	for userID, clients := range conns {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				h.wsLog.LogError(ctx, userID, err, "shutdown_close_message")
			}
			if err := client.Conn.Close(); err != nil {
				h.wsLog.LogError(ctx, userID, err, "shutdown_close")
			}
		}
	}
	return nil
}
