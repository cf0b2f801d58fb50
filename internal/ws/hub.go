package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Presence records whether a user has at least one live connection.
type Presence interface {
	SetOnlineStatus(ctx context.Context, userID string, isOnline bool) error
}

// Hub tracks active connections keyed by user id. A user's first
// connection marks them online, their last disconnect marks them offline.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]map[*Connection]struct{}
	presence Presence
	log      zerolog.Logger
}

func NewHub(presence Presence, log zerolog.Logger) *Hub {
	return &Hub{
		conns:    make(map[string]map[*Connection]struct{}),
		presence: presence,
		log:      log.With().Str("component", "ws.hub").Logger(),
	}
}

func (h *Hub) Register(c *Connection) {
	h.mu.Lock()
	first := len(h.conns[c.UserID]) == 0
	if h.conns[c.UserID] == nil {
		h.conns[c.UserID] = make(map[*Connection]struct{})
	}
	h.conns[c.UserID][c] = struct{}{}
	h.mu.Unlock()

	if first {
		h.setPresence(c.UserID, true)
	}
}

func (h *Hub) Unregister(c *Connection) {
	h.mu.Lock()
	last := false
	if conns, ok := h.conns[c.UserID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.conns, c.UserID)
			last = true
		}
	}
	h.mu.Unlock()

	if last {
		h.setPresence(c.UserID, false)
	}
}

// Online reports whether userID has a live connection.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.conns {
		n += len(conns)
	}
	return n
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Connection
	for _, conns := range h.conns {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.Close(websocket.CloseGoingAway, "server shutting down")
	}
}

func (h *Hub) setPresence(userID string, online bool) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.presence.SetOnlineStatus(ctx, userID, online); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Bool("online", online).Msg("update presence")
	}
}
