package ws

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Conn is the transport surface the hub needs from a websocket connection.
// *websocket.Conn satisfies it; tests substitute in-memory fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ConnInfo carries per-connection identity for metrics and audit events.
type ConnInfo struct {
	ConnID      string
	UserID      int
	Username    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// safeConn serializes writes to one underlying connection. Broadcasts run
// from many goroutines at once and gorilla/websocket allows at most one
// concurrent writer per connection.
type safeConn struct {
	mu   sync.Mutex
	conn Conn
}

func newSafeConn(conn Conn) *safeConn {
	return &safeConn{conn: conn}
}

func (s *safeConn) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(messageType, data)
}

func (s *safeConn) Close() error {
	return s.conn.Close()
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
