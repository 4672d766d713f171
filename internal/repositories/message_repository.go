package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageFilter narrows a message history read. Zero values mean no filter.
type MessageFilter struct {
	Query      string // substring match on body
	HasImage   bool
	FromSender int64 // restrict to one sender id
	NewestLast bool  // ascending (created_at, id) when true
	Page       int
	PageSize   int
}

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	Create(ctx context.Context, conversationID, senderID int64, body string, imageURL *string) (models.Message, error)
	Get(ctx context.Context, messageID int64) (models.Message, error)
	ListForConversation(ctx context.Context, conversationID int64, filter MessageFilter) ([]models.Message, error)
	LatestCreatedAt(ctx context.Context, conversationID int64) (*time.Time, error)
	CountUnread(ctx context.Context, conversationID, otherID int64, after *time.Time) (int, error)
	SoftDelete(ctx context.Context, messageID, senderID int64) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, body, image_url, is_deleted, created_at`

// Create stores a message in a conversation.
func (r *MessageRepo) Create(ctx context.Context, conversationID, senderID int64, body string, imageURL *string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`INSERT INTO messages (conversation_id, sender_id, body, image_url) VALUES ($1, $2, $3, $4)
        RETURNING `+messageColumns,
		conversationID, senderID, body, imageURL)
	return msg, err
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListForConversation returns non-deleted messages ordered by the canonical
// (created_at, id) key, paginated and optionally filtered.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID int64, filter MessageFilter) ([]models.Message, error) {
	var (
		clauses = []string{"conversation_id=$1", "is_deleted = FALSE"}
		args    = []interface{}{conversationID}
	)

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		clauses = append(clauses, "body ILIKE $"+strconv.Itoa(len(args)))
	}
	if filter.HasImage {
		clauses = append(clauses, "image_url IS NOT NULL")
	}
	if filter.FromSender != 0 {
		args = append(args, filter.FromSender)
		clauses = append(clauses, "sender_id=$"+strconv.Itoa(len(args)))
	}

	order := "ORDER BY created_at ASC, id ASC"
	if !filter.NewestLast {
		order = "ORDER BY created_at DESC, id DESC"
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	args = append(args, pageSize)
	limit := "LIMIT $" + strconv.Itoa(len(args))
	args = append(args, (page-1)*pageSize)
	offset := "OFFSET $" + strconv.Itoa(len(args))

	query := `SELECT ` + messageColumns + ` FROM messages WHERE ` +
		strings.Join(clauses, " AND ") + " " + order + " " + limit + " " + offset

	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, query, args...)
	return msgs, err
}

// LatestCreatedAt returns the creation time of the newest non-deleted message,
// or nil when the conversation has no messages.
func (r *MessageRepo) LatestCreatedAt(ctx context.Context, conversationID int64) (*time.Time, error) {
	var latest sql.NullTime
	err := r.db.GetContext(ctx, &latest,
		`SELECT MAX(created_at) FROM messages WHERE conversation_id=$1 AND is_deleted = FALSE`,
		conversationID)
	if err != nil {
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

// CountUnread counts non-deleted messages from otherID created strictly after
// the watermark. A nil watermark counts everything from the other side.
func (r *MessageRepo) CountUnread(ctx context.Context, conversationID, otherID int64, after *time.Time) (int, error) {
	var count int
	if after == nil {
		err := r.db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM messages WHERE conversation_id=$1 AND sender_id=$2 AND is_deleted = FALSE`,
			conversationID, otherID)
		return count, err
	}
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages WHERE conversation_id=$1 AND sender_id=$2 AND is_deleted = FALSE AND created_at > $3`,
		conversationID, otherID, *after)
	return count, err
}

// SoftDelete marks a message deleted; only the sender may do this.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID, senderID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_deleted = TRUE WHERE id=$1 AND sender_id=$2`, messageID, senderID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
