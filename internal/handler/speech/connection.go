package speech

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnectionRegistry keeps one live websocket per chat session, so a chat
// session never has two recordings in flight.
type ConnectionRegistry struct {
	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

// NewConnectionRegistry 创建连接注册表
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{conns: make(map[string]*websocket.Conn)}
}

// Register binds conn to the session and closes any connection it replaces.
func (r *ConnectionRegistry) Register(sessionID string, conn *websocket.Conn) {
	r.mu.Lock()
	previous := r.conns[sessionID]
	r.conns[sessionID] = conn
	r.mu.Unlock()

	if previous != nil && previous != conn {
		log.Printf("[websocket] replacing connection for session=%s", sessionID)
		deadline := time.Now().Add(time.Second)
		_ = previous.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "replaced by a newer connection"), deadline)
		_ = previous.Close()
	}
}

// Remove drops conn if it is still the registered connection for the session.
func (r *ConnectionRegistry) Remove(sessionID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[sessionID] == conn {
		delete(r.conns, sessionID)
	}
}

// Count 返回当前活跃连接数
func (r *ConnectionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
