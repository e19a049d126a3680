package ws

import (
	"log"
	"sort"
	"sync"

	"github.com/gorilla/websocket"

	"chat-server/internal/observability"
)

// Hub is the in-process connection registry and presence set. A chat room
// maps user ids to their open connections; the online set refcounts
// connections per user so it holds at most one entry per connected user.
// All mutation goes through one RWMutex and broadcast iterates over a
// snapshot, never the live maps.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[int]map[int][]Conn
	online map[int]*presenceEntry
}

type presenceEntry struct {
	username string
	conns    int
}

// delivery pairs a connection with its registry coordinates so a failed send
// can remove exactly that entry.
type delivery struct {
	chatID int
	userID int
	conn   Conn
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[int]map[int][]Conn),
		online: make(map[int]*presenceEntry),
	}
}

// Register adds a connection to a chat room.
func (h *Hub) Register(chatID, userID int, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[chatID]; !ok {
		h.rooms[chatID] = make(map[int][]Conn)
	}
	h.rooms[chatID][userID] = append(h.rooms[chatID][userID], conn)
}

// Unregister removes a connection from a chat room, dropping empty user and
// room entries.
func (h *Hub) Unregister(chatID, userID int, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(chatID, userID, conn)
}

func (h *Hub) unregisterLocked(chatID, userID int, conn Conn) {
	users, ok := h.rooms[chatID]
	if !ok {
		return
	}
	conns := users[userID]
	for i, c := range conns {
		if c == conn {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(users, userID)
	} else {
		users[userID] = conns
	}
	if len(users) == 0 {
		delete(h.rooms, chatID)
	}
}

// Snapshot returns a stable copy of a room's connections for iteration.
func (h *Hub) Snapshot(chatID int) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var conns []Conn
	for _, userConns := range h.rooms[chatID] {
		conns = append(conns, userConns...)
	}
	return conns
}

func (h *Hub) snapshotDeliveries(chatID int) []delivery {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []delivery
	for userID, userConns := range h.rooms[chatID] {
		for _, conn := range userConns {
			out = append(out, delivery{chatID: chatID, userID: userID, conn: conn})
		}
	}
	return out
}

// Join adds a user to the presence set, refcounting their connections.
func (h *Hub) Join(userID int, username string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if entry, ok := h.online[userID]; ok {
		entry.conns++
		return
	}
	h.online[userID] = &presenceEntry{username: username, conns: 1}
}

// Leave decrements the user's connection count and reports whether their last
// connection just closed, removing the presence entry when it did.
func (h *Hub) Leave(userID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.online[userID]
	if !ok {
		return false
	}
	entry.conns--
	if entry.conns <= 0 {
		delete(h.online, userID)
		return true
	}
	return false
}

// OnlineUsers lists the usernames currently connected, sorted for stable
// frames.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.online))
	for _, entry := range h.online {
		users = append(users, entry.username)
	}
	sort.Strings(users)
	return users
}

// Broadcast fans a payload out to every connection of a chat, except an
// optional excluded connection. A failed send closes and unregisters only
// that connection; delivery to the rest proceeds.
func (h *Hub) Broadcast(chatID int, payload []byte, exclude Conn) {
	for _, d := range h.snapshotDeliveries(chatID) {
		if d.conn == exclude {
			continue
		}
		if err := d.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			d.conn.Close()
			h.Unregister(d.chatID, d.userID, d.conn)
			observability.IncBroadcastDrop()
			continue
		}
		observability.IncBroadcastDelivery()
	}
}
