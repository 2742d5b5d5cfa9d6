package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/aura-webinar/feedbackhub/internal/metrics"
	"github.com/aura-webinar/feedbackhub/internal/notify"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventReviewsChanged tells a dashboard to reload. It carries no data.
	EventReviewsChanged = "reviews_changed"
)

// Hub keeps owner -> set of dashboard sockets and pushes change events to them.
// It listens to the change source only while at least one socket is connected.
type Hub struct {
	owners map[string]map[string]*Client
	source notify.Source
	cancel func()
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub fed by source.
func NewHub(source notify.Source, logger *zap.Logger) *Hub {
	return &Hub{
		owners: make(map[string]map[string]*Client),
		source: source,
		logger: logger,
	}
}

// Register adds a client. The first client starts the change subscription.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.owners[c.Owner] == nil {
		h.owners[c.Owner] = make(map[string]*Client)
	}
	h.owners[c.Owner][c.ID] = c
	if h.cancel == nil && h.source != nil {
		h.cancel = h.source.Subscribe(func() {
			h.Broadcast(EventReviewsChanged, nil)
		})
	}
	h.mu.Unlock()
	metrics.WebSocketConnectionsCurrent.Inc()
	h.logger.Debug("dashboard socket connected", zap.String("client_id", c.ID), zap.String("owner", c.Owner))
}

// Unregister removes a client. The last client out cancels the change subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	m, ok := h.owners[c.Owner]
	if ok {
		if _, ok = m[c.ID]; ok {
			delete(m, c.ID)
			if len(m) == 0 {
				delete(h.owners, c.Owner)
			}
		}
	}
	if len(h.owners) == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	if ok {
		metrics.WebSocketConnectionsCurrent.Dec()
	}
	h.logger.Debug("dashboard socket closed", zap.String("client_id", c.ID), zap.String("owner", c.Owner))
}

// Broadcast sends an event to every connected socket.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg, ok := h.message(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.owners {
		for _, c := range clients {
			c.deliver(msg)
		}
	}
}

// SendToOwner sends an event to the sockets of one dashboard owner.
func (h *Hub) SendToOwner(owner, event string, payload interface{}) {
	msg, ok := h.message(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.owners[owner] {
		c.deliver(msg)
	}
}

// DisconnectOwner closes every socket of owner, e.g. after sign-out.
func (h *Hub) DisconnectOwner(owner string) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.owners[owner]))
	for _, c := range h.owners[owner] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.close()
	}
}

// Connections returns the number of connected sockets.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, m := range h.owners {
		n += len(m)
	}
	return n
}

func (h *Hub) message(event string, payload interface{}) (WSMessage, bool) {
	msg := WSMessage{Event: event}
	if payload == nil {
		return msg, true
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("failed to encode socket event", zap.String("event", event), zap.Error(err))
		return msg, false
	}
	msg.Data = data
	return msg, true
}
