package chat

import "sync"

// Conn is the client side of one connection. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// Hub tracks the live connection of each client identity.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]Conn)}
}

// Register makes conn the live connection for identity and returns the one
// it replaced, if any.
func (h *Hub) Register(identity string, conn Conn) Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.conns[identity]
	h.conns[identity] = conn
	return prev
}

// Unregister removes identity only while conn is still its live
// connection, so a newer connection for the same device is left alone.
func (h *Hub) Unregister(identity string, conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[identity] != conn {
		return false
	}
	delete(h.conns, identity)
	return true
}

func (h *Hub) Get(identity string) (Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[identity]
	return c, ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
