package ws

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub tracks live session sockets per profile.
type Hub struct {
	sessions map[string]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[*websocket.Conn]ConnInfo)}
}

// Add registers a socket under its profile.
func (h *Hub) Add(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[info.ProfileID]; !ok {
		h.sessions[info.ProfileID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.sessions[info.ProfileID][conn] = info
}

// Remove forgets a socket.
func (h *Hub) Remove(profileID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.sessions[profileID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.sessions, profileID)
		}
	}
}

// Count returns the number of live sockets for a profile.
func (h *Hub) Count(profileID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[profileID])
}

// CloseProfile ends every socket of a profile, as on logout.
func (h *Hub) CloseProfile(profileID string, reason string) int {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.sessions[profileID]))
	for conn := range h.sessions[profileID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	for _, conn := range conns {
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
			log.Printf("websocket close error: %v", err)
		}
		conn.Close()
	}
	return len(conns)
}
