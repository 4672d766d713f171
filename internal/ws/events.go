package ws

import (
	"time"

	"messaging-service/internal/models"
)

// Wire event types. Every outbound frame is a JSON object carrying exactly one
// of these in its mandatory "type" field.
const (
	EventConversationsSnapshot = "conversations_snapshot"
	EventMessageNew            = "message_new"
	EventConversationUpsert    = "conversation_upsert"
	EventConversationDeleted   = "conversation_deleted"
	EventUnreadCounts          = "unread_counts"
	EventChatMessage           = "chat_message"
	EventTyping                = "typing"
	EventReadReceipt           = "read_receipt"
	EventHello                 = "hello"
	EventError                 = "error"
)

// Event is the closed set of outbound wire frames. Constructors stamp the
// type discriminator; nothing outside this file creates frames by hand.
type Event interface {
	eventType() string
}

// SnapshotEvent carries the point-in-time conversation list sent once at
// inbox join time.
type SnapshotEvent struct {
	Type          string                    `json:"type"`
	Conversations []models.ConversationView `json:"conversations"`
}

func NewSnapshotEvent(conversations []models.ConversationView) SnapshotEvent {
	if conversations == nil {
		conversations = []models.ConversationView{}
	}
	return SnapshotEvent{Type: EventConversationsSnapshot, Conversations: conversations}
}

func (SnapshotEvent) eventType() string { return EventConversationsSnapshot }

// ChatMessageEvent delivers a persisted message to the conversation's chat room.
type ChatMessageEvent struct {
	Type    string         `json:"type"`
	Message models.Message `json:"message"`
}

func NewChatMessageEvent(msg models.Message) ChatMessageEvent {
	return ChatMessageEvent{Type: EventChatMessage, Message: msg}
}

func (ChatMessageEvent) eventType() string { return EventChatMessage }

// MessageNewEvent notifies an inbox that a conversation received a message.
type MessageNewEvent struct {
	Type           string         `json:"type"`
	ConversationID int64          `json:"conversation"`
	Message        models.Message `json:"message"`
}

func NewMessageNewEvent(conversationID int64, msg models.Message) MessageNewEvent {
	return MessageNewEvent{Type: EventMessageNew, ConversationID: conversationID, Message: msg}
}

func (MessageNewEvent) eventType() string { return EventMessageNew }

// ConversationUpsertEvent pushes a viewer-relative conversation snapshot to an
// inbox. The payload is built per recipient, never shared.
type ConversationUpsertEvent struct {
	Type         string                  `json:"type"`
	Conversation models.ConversationView `json:"conversation"`
}

func NewConversationUpsertEvent(view models.ConversationView) ConversationUpsertEvent {
	return ConversationUpsertEvent{Type: EventConversationUpsert, Conversation: view}
}

func (ConversationUpsertEvent) eventType() string { return EventConversationUpsert }

// ConversationDeletedEvent tells an inbox a conversation left the user's list.
type ConversationDeletedEvent struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

func NewConversationDeletedEvent(conversationID int64) ConversationDeletedEvent {
	return ConversationDeletedEvent{Type: EventConversationDeleted, ID: conversationID}
}

func (ConversationDeletedEvent) eventType() string { return EventConversationDeleted }

// UnreadCountsEvent pushes a batch of per-conversation unread counts, keyed by
// conversation id.
type UnreadCountsEvent struct {
	Type   string         `json:"type"`
	Counts map[string]int `json:"counts"`
}

func NewUnreadCountsEvent(counts map[string]int) UnreadCountsEvent {
	return UnreadCountsEvent{Type: EventUnreadCounts, Counts: counts}
}

func (UnreadCountsEvent) eventType() string { return EventUnreadCounts }

// TypingEvent signals that the named user is typing in the room.
type TypingEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

func NewTypingEvent(username string) TypingEvent {
	return TypingEvent{Type: EventTyping, Username: username}
}

func (TypingEvent) eventType() string { return EventTyping }

// ReadReceiptEvent tells a chat room that a participant advanced their
// last-read watermark.
type ReadReceiptEvent struct {
	Type           string    `json:"type"`
	ConversationID int64     `json:"conversation_id"`
	ReaderUsername string    `json:"reader_username"`
	LastReadAt     time.Time `json:"last_read_at"`
}

func NewReadReceiptEvent(conversationID int64, readerUsername string, lastReadAt time.Time) ReadReceiptEvent {
	return ReadReceiptEvent{
		Type:           EventReadReceipt,
		ConversationID: conversationID,
		ReaderUsername: readerUsername,
		LastReadAt:     lastReadAt,
	}
}

func (ReadReceiptEvent) eventType() string { return EventReadReceipt }

// HelloEvent acknowledges a chat join.
type HelloEvent struct {
	Type string `json:"type"`
	Room int64  `json:"room"`
}

func NewHelloEvent(room int64) HelloEvent {
	return HelloEvent{Type: EventHello, Room: room}
}

func (HelloEvent) eventType() string { return EventHello }

// ErrorEvent reports a command failure back to one connection only.
type ErrorEvent struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

func NewErrorEvent(detail string) ErrorEvent {
	return ErrorEvent{Type: EventError, Detail: detail}
}

func (ErrorEvent) eventType() string { return EventError }
