package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-server/internal/auth"
	"chat-server/internal/models"
	"chat-server/internal/observability"
	"chat-server/internal/repositories"
	"chat-server/internal/telemetry"
)

// SocketHandler owns the real-time endpoint: handshake, presence, and the
// per-connection read loop feeding the message pipeline.
type SocketHandler struct {
	hub      *Hub
	chats    repositories.ChatRepository
	pipeline *MessagePipeline
	verifier *auth.Verifier
	audit    *telemetry.AuditEmitter
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub, chats repositories.ChatRepository, pipeline *MessagePipeline, verifier *auth.Verifier, audit *telemetry.AuditEmitter) *SocketHandler {
	return &SocketHandler{hub: hub, chats: chats, pipeline: pipeline, verifier: verifier, audit: audit}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, authenticates, resolves the target chat,
// joins presence, and spawns the read loop. An invalid token closes the
// connection with a policy-violation code before any frame is exchanged.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-server/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.Query("token")
	if token == "" {
		token = bearerToken(c.GetHeader("Authorization"))
	}

	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := newSafeConn(socket)

	userID, username, err := h.verifier.Verify(token)
	if err != nil {
		closeWithPolicyViolation(conn, "invalid token")
		return
	}

	global, err := h.chats.GetOrCreateGlobal(ctx)
	if err != nil {
		closeWithError(conn, "unavailable")
		return
	}

	chat := global
	chatName := c.DefaultQuery("chat_name", models.GlobalChatName)
	if chatName != models.GlobalChatName {
		chat, err = h.chats.GetChatByName(ctx, chatName)
		if err != nil {
			closeWithPolicyViolation(conn, "unknown chat")
			return
		}
		member, err := h.chats.IsMember(ctx, chat.ID, userID)
		if err != nil || !member {
			closeWithPolicyViolation(conn, "not a chat member")
			return
		}
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		Username:    username,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	// Presence first: the new connection gets the full list directly, then
	// everyone else on the global chat learns about the update. The new
	// connection is not yet registered, so the broadcast cannot re-send it.
	h.hub.Join(userID, username)
	if payload, err := json.Marshal(models.NewPresenceEvent(h.hub.OnlineUsers())); err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.hub.Leave(userID)
			conn.Close()
			return
		}
		h.hub.Broadcast(global.ID, payload, conn)
	}

	h.hub.Register(chat.ID, userID, conn)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.emitWSEvent(ctx, "ws_connect", info, "")

	go h.readLoop(socket, conn, chat, global.ID, info)
}

// readLoop consumes frames until the connection dies. Every exit path runs
// the same cleanup: unregister, leave presence, one presence broadcast.
// Reads come off the raw socket; every write goes through the serialized conn.
func (h *SocketHandler) readLoop(socket *websocket.Conn, conn Conn, chat models.Chat, globalChatID int, info ConnInfo) {
	// The handshake context dies with the HTTP handler; the loop outlives it.
	ctx := context.Background()
	var closeReason string
	defer func() {
		h.hub.Unregister(chat.ID, info.UserID, conn)
		h.hub.Leave(info.UserID)
		if payload, err := json.Marshal(models.NewPresenceEvent(h.hub.OnlineUsers())); err == nil {
			h.hub.Broadcast(globalChatID, payload, conn)
		}
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.emitWSEvent(ctx, "ws_disconnect", info, closeReason)
		conn.Close()
	}()

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.emitWSEvent(ctx, "ws_error", info, closeReason)
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			closeReason = "malformed frame"
			closeWithPolicyViolation(conn, "malformed frame")
			return
		}

		if _, err := h.pipeline.Send(ctx, chat, info.UserID, info.Username, in); err != nil {
			if errors.Is(err, ErrNotMember) {
				closeReason = "not a chat member"
				h.emitAudit(ctx, "ERROR", "unauthorized send", info)
				closeWithPolicyViolation(conn, "not a chat member")
				return
			}
			// Persistence failures abort the message but keep the
			// connection; nothing was broadcast.
			log.Printf("message pipeline error: %v", err)
		}
	}
}

func (h *SocketHandler) emitAudit(ctx context.Context, level, text string, info ConnInfo) {
	if h.audit == nil {
		return
	}
	userID := int64(info.UserID)
	h.audit.Emit(ctx, level, text, info.RequestID, &userID)
}

func (h *SocketHandler) emitWSEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	if h.audit == nil {
		return
	}
	h.audit.EmitWS(ctx, info.RequestID, telemetry.WSEventPayload{
		Event:      event,
		ConnID:     info.ConnID,
		UserID:     info.UserID,
		Username:   info.Username,
		IP:         info.IP,
		TraceID:    info.TraceID,
		DurationMS: time.Since(info.ConnectedAt).Milliseconds(),
		Reason:     reason,
	})
}

func closeWithPolicyViolation(conn Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
	_ = conn.Close()
}

func closeWithError(conn Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, reason)
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
	_ = conn.Close()
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
