package models

import "time"

// UserBlock is a directed block from blocker to blocked, unique per ordered
// pair. A block in either direction suppresses conversation creation and
// message delivery between the two users.
type UserBlock struct {
	ID        int64     `db:"id" json:"id"`
	BlockerID int64     `db:"blocker_id" json:"blocker"`
	BlockedID int64     `db:"blocked_id" json:"blocked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UserReport records a moderation report. The handled flag belongs to the
// moderation workflow, not to the messaging core.
type UserReport struct {
	ID             int64     `db:"id" json:"id"`
	ReporterID     int64     `db:"reporter_id" json:"reporter"`
	ReportedID     int64     `db:"reported_id" json:"reported"`
	ConversationID *int64    `db:"conversation_id" json:"conversation"`
	MessageID      *int64    `db:"message_id" json:"message"`
	Reason         string    `db:"reason" json:"reason"`
	Details        string    `db:"details" json:"details"`
	Handled        bool      `db:"handled" json:"handled"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
