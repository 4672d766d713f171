package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/views"
)

// Router translates domain events into typed wire frames and fans them out to
// the right rooms. It is constructed once at startup and passed to whoever
// triggers events; there is no process-global broadcast handle.
//
// Conversation payloads pushed to inboxes are built once per target user id,
// because unread count, mute flag and the counterpart's last-read are relative
// to the viewer. A failed per-recipient build is logged and skipped without
// aborting delivery to the other recipients.
type Router struct {
	hub   *Hub
	views views.ConversationViews
}

// NewRouter constructs a Router over the registry and the view builder.
func NewRouter(hub *Hub, convoViews views.ConversationViews) *Router {
	return &Router{hub: hub, views: convoViews}
}

// MessageCreated fans out a freshly persisted message: the full message to the
// conversation's chat room, and message_new plus a per-recipient
// conversation_upsert to each participant's inbox.
func (r *Router) MessageCreated(ctx context.Context, convo models.Conversation, msg models.Message) {
	r.toChatRoom(convo.ID, NewChatMessageEvent(msg))

	for _, userID := range []int64{convo.BuyerID, convo.SellerID} {
		r.toInbox(userID, NewMessageNewEvent(convo.ID, msg))
		r.upsertForUser(ctx, convo.ID, userID)
	}
}

// ConversationRead fans out a successful mark-read: a read receipt to the chat
// room and a per-recipient conversation_upsert to both inboxes. Callers only
// invoke this when the read state actually changed.
func (r *Router) ConversationRead(ctx context.Context, convo models.Conversation, readerUsername string, lastRead time.Time) {
	r.toChatRoom(convo.ID, NewReadReceiptEvent(convo.ID, readerUsername, lastRead))

	for _, userID := range []int64{convo.BuyerID, convo.SellerID} {
		r.upsertForUser(ctx, convo.ID, userID)
	}
}

// ConversationDeleted tells each affected user's inbox that the conversation
// left their list.
func (r *Router) ConversationDeleted(conversationID int64, userIDs ...int64) {
	for _, userID := range userIDs {
		r.toInbox(userID, NewConversationDeletedEvent(conversationID))
	}
}

// Typing relays a typing signal to everyone in the chat room except the
// sender. Typing signals are never persisted.
func (r *Router) Typing(conversationID int64, sender *Session) {
	payload, err := json.Marshal(NewTypingEvent(sender.Username))
	if err != nil {
		log.Printf("fanout marshal error event=%s: %v", EventTyping, err)
		return
	}
	for _, member := range r.hub.ChatMembers(conversationID) {
		if member == sender {
			continue
		}
		member.Send(payload)
	}
	observability.IncFanoutEvent(EventTyping)
}

// UnreadCounts pushes a batch of unread counters to a user's inbox.
func (r *Router) UnreadCounts(userID int64, counts map[string]int) {
	r.toInbox(userID, NewUnreadCountsEvent(counts))
}

func (r *Router) upsertForUser(ctx context.Context, conversationID, userID int64) {
	view, err := r.views.ConversationFor(ctx, conversationID, userID)
	if err != nil {
		// Isolate the failing recipient; the others still get their payloads.
		log.Printf("fanout view build failed conversation=%d user=%d: %v", conversationID, userID, err)
		observability.IncFanoutError(EventConversationUpsert)
		return
	}
	r.toInbox(userID, NewConversationUpsertEvent(view))
}

// toChatRoom delivers an event to every member of a chat room. An empty room
// is a silent no-op.
func (r *Router) toChatRoom(conversationID int64, event Event) {
	r.deliver(r.hub.ChatMembers(conversationID), event)
}

// toInbox delivers an event to every live connection in a user's inbox room.
func (r *Router) toInbox(userID int64, event Event) {
	r.deliver(r.hub.InboxMembers(userID), event)
}

func (r *Router) deliver(members []*Session, event Event) {
	if len(members) == 0 {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("fanout marshal error event=%s: %v", event.eventType(), err)
		observability.IncFanoutError(event.eventType())
		return
	}
	for _, member := range members {
		member.Send(payload)
	}
	observability.IncFanoutEvent(event.eventType())
}
