package models

import "time"

// Message belongs to exactly one conversation. A message must carry a
// non-empty body or an image; the sender is always one of the two
// participants. Canonical ordering is (created_at, id) ascending.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversation"`
	SenderID       int64     `db:"sender_id" json:"sender"`
	SenderUsername string    `json:"sender_username,omitempty"`
	Body           string    `db:"body" json:"body"`
	ImageURL       *string   `db:"image_url" json:"image_url"`
	IsDeleted      bool      `db:"is_deleted" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
