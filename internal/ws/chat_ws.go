package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/auth"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// ChatWebSocketHandler handles per-conversation chat connections.
type ChatWebSocketHandler struct {
	hub      *Hub
	router   *Router
	convos   repositories.ConversationRepository
	messages repositories.MessageRepository
	blocks   repositories.BlockRepository
	verifier *auth.Verifier
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(hub *Hub, router *Router, convos repositories.ConversationRepository, messages repositories.MessageRepository, blocks repositories.BlockRepository, verifier *auth.Verifier) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{hub: hub, router: router, convos: convos, messages: messages, blocks: blocks, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, authenticates and authorizes the caller,
// registers the session and runs the sequential inbound loop.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	identity, err := resolveIdentity(c, h.verifier)
	if err != nil {
		closeRaw(conn, CloseUnauthenticated, "unauthenticated")
		return
	}

	convo, err := h.convos.Get(context.WithoutCancel(ctx), conversationID)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			closeRaw(conn, CloseForbidden, "not a participant")
		} else {
			log.Printf("chat ws: load conversation %d: %v", conversationID, err)
			closeRaw(conn, CloseInternalError, "server error")
		}
		return
	}
	if !convo.IsParticipant(identity.UserID) {
		closeRaw(conn, CloseForbidden, "not a participant")
		return
	}

	sess := NewSession(conn, identity)
	sess.IP = observability.IPFromRequest(c.Request)
	sess.DeviceID = observability.DeviceIDFromRequest(c.Request)
	sess.RequestID = observability.RequestIDFromRequest(c.Request)
	sess.TraceID = span.SpanContext().TraceID().String()

	h.hub.JoinInbox(identity.UserID, sess)
	h.hub.JoinChat(conversationID, sess)
	sess.OnClose(func() {
		h.hub.LeaveChat(conversationID, sess)
		h.hub.LeaveInbox(identity.UserID, sess)
		observability.DecWSActive("chat")
		observability.IncWSEvent("chat", "ws_disconnect")
		publishLifecycleEvent(context.WithoutCancel(ctx), "chat", conversationID, sess, "ws_disconnect", "")
	})

	observability.IncWSActive("chat")
	observability.IncWSEvent("chat", "ws_connect")
	publishLifecycleEvent(ctx, "chat", conversationID, sess, "ws_connect", "")

	sess.SendEvent(NewHelloEvent(conversationID))

	go h.readLoop(context.WithoutCancel(ctx), sess, convo)
}

// chatFrame is the inbound command shape: a typing signal or a free-form
// message object with body/image fields.
type chatFrame struct {
	Type     string `json:"type"`
	Body     string `json:"body"`
	ImageURL string `json:"image_url"`
}

// readLoop processes inbound frames strictly sequentially. Malformed or
// unrecognized frames are dropped without closing the connection; command
// failures are reported back to this connection only.
func (h *ChatWebSocketHandler) readLoop(ctx context.Context, sess *Session, convo models.Conversation) {
	defer sess.Close(websocket.CloseNormalClosure, "")

	for {
		data, err := sess.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !sess.Closed() {
				observability.IncWSEvent("chat", "ws_error")
				publishLifecycleEvent(ctx, "chat", convo.ID, sess, "ws_error", err.Error())
			}
			return
		}

		var frame chatFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "typing":
			h.router.Typing(convo.ID, sess)
		case "", "send_message":
			h.handleSend(ctx, sess, convo, frame)
		default:
			// Unrecognized command types are ignored.
		}
	}
}

func (h *ChatWebSocketHandler) handleSend(ctx context.Context, sess *Session, convo models.Conversation, frame chatFrame) {
	body := strings.TrimSpace(frame.Body)
	if body == "" && frame.ImageURL == "" {
		sess.SendEvent(NewErrorEvent("message must contain text or an image"))
		return
	}

	blocked, err := h.blocks.IsBlocked(ctx, sess.UserID, convo.OtherParticipant(sess.UserID))
	if err != nil {
		log.Printf("chat ws: block check conversation=%d: %v", convo.ID, err)
		sess.SendEvent(NewErrorEvent("could not send message"))
		return
	}
	if blocked {
		sess.SendEvent(NewErrorEvent("you cannot message this user"))
		return
	}

	var imageURL *string
	if frame.ImageURL != "" {
		imageURL = &frame.ImageURL
	}
	msg, err := h.messages.Create(ctx, convo.ID, sess.UserID, body, imageURL)
	if err != nil {
		log.Printf("chat ws: store message conversation=%d: %v", convo.ID, err)
		sess.SendEvent(NewErrorEvent("could not send message"))
		return
	}
	msg.SenderUsername = sess.Username

	// A new message makes the conversation visible again on both sides.
	if err := h.convos.UnhideForUser(ctx, convo.ID, convo.BuyerID); err != nil {
		log.Printf("chat ws: unhide buyer conversation=%d: %v", convo.ID, err)
	}
	if err := h.convos.UnhideForUser(ctx, convo.ID, convo.SellerID); err != nil {
		log.Printf("chat ws: unhide seller conversation=%d: %v", convo.ID, err)
	}

	h.router.MessageCreated(ctx, convo, msg)
}

// resolveIdentity authenticates the handshake. A bearer token in the query
// string, when valid, supersedes cookie identity; otherwise the Authorization
// header and then the session cookie are tried.
func resolveIdentity(c *gin.Context, verifier *auth.Verifier) (auth.Identity, error) {
	if token := c.Query("token"); token != "" {
		if identity, err := verifier.Verify(token); err == nil {
			return identity, nil
		}
	}
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if identity, err := verifier.Verify(parts[1]); err == nil {
				return identity, nil
			}
		}
	}
	if cookie, err := c.Cookie("session"); err == nil && cookie != "" {
		if identity, err := verifier.Verify(cookie); err == nil {
			return identity, nil
		}
	}
	return auth.Identity{}, auth.ErrInvalidToken
}

// closeRaw signals a terminal handshake condition on a connection that never
// became a session.
func closeRaw(conn ConnLike, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}

func publishLifecycleEvent(ctx context.Context, kind string, resourceID int64, sess *Session, event, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"resource_id": resourceID,
			"event":       event,
			"conn_id":     sess.ID,
			"duration_ms": time.Since(sess.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   sess.UserID,
			"username":  sess.Username,
			"ip":        sess.IP,
			"device_id": sess.DeviceID,
		},
	}

	headers := observability.BuildHeaders(sess.RequestID, sess.TraceID)
	_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}

func wsRoutingKey(kind string) string {
	if kind == "inbox" {
		return "ws_events.inbox"
	}
	return "ws_events.chats"
}
