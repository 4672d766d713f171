package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/auth"
	"messaging-service/internal/observability"
	"messaging-service/internal/views"
)

// InboxWebSocketHandler handles a user's inbox connection: the live list of
// their conversations with viewer-relative metadata.
type InboxWebSocketHandler struct {
	hub      *Hub
	views    views.ConversationViews
	verifier *auth.Verifier
}

// NewInboxWebSocketHandler constructs an InboxWebSocketHandler.
func NewInboxWebSocketHandler(hub *Hub, convoViews views.ConversationViews, verifier *auth.Verifier) *InboxWebSocketHandler {
	return &InboxWebSocketHandler{hub: hub, views: convoViews, verifier: verifier}
}

// Handle upgrades the connection, authenticates the caller, registers the
// session in the user's inbox room and pushes the initial snapshot.
func (h *InboxWebSocketHandler) Handle(c *gin.Context) {
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

	sess := NewSession(conn, identity)
	sess.IP = observability.IPFromRequest(c.Request)
	sess.DeviceID = observability.DeviceIDFromRequest(c.Request)
	sess.RequestID = observability.RequestIDFromRequest(c.Request)
	sess.TraceID = span.SpanContext().TraceID().String()

	h.hub.JoinInbox(identity.UserID, sess)
	sess.OnClose(func() {
		h.hub.LeaveInbox(identity.UserID, sess)
		observability.DecWSActive("inbox")
		observability.IncWSEvent("inbox", "ws_disconnect")
		publishLifecycleEvent(context.WithoutCancel(ctx), "inbox", identity.UserID, sess, "ws_disconnect", "")
	})

	observability.IncWSActive("inbox")
	observability.IncWSEvent("inbox", "ws_connect")
	publishLifecycleEvent(ctx, "inbox", identity.UserID, sess, "ws_connect", "")

	snapshot, err := h.views.SnapshotFor(context.WithoutCancel(ctx), identity.UserID)
	if err != nil {
		// Degrade to an empty list; upserts will repopulate as events arrive.
		log.Printf("inbox ws: snapshot user=%d: %v", identity.UserID, err)
		snapshot = nil
	}
	sess.SendEvent(NewSnapshotEvent(snapshot))

	go h.readLoop(context.WithoutCancel(ctx), sess)
}

// readLoop drains inbound frames. The inbox accepts no commands; anything the
// client sends is parsed and dropped, keeping the connection alive until the
// peer closes it.
func (h *InboxWebSocketHandler) readLoop(ctx context.Context, sess *Session) {
	defer sess.Close(websocket.CloseNormalClosure, "")

	for {
		data, err := sess.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !sess.Closed() {
				observability.IncWSEvent("inbox", "ws_error")
				publishLifecycleEvent(ctx, "inbox", sess.UserID, sess, "ws_error", err.Error())
			}
			return
		}
		var frame map[string]json.RawMessage
		_ = json.Unmarshal(data, &frame)
	}
}
