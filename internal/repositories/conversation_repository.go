package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
)

// ConversationRepository abstracts conversation persistence and per-participant
// read state.
type ConversationRepository interface {
	CreateOrGet(ctx context.Context, itemID int64, itemTitle string, buyerID, sellerID int64) (models.Conversation, bool, error)
	Get(ctx context.Context, conversationID int64) (models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	ViewForUser(ctx context.Context, conversationID, userID int64) (models.ConversationView, error)
	ListViewsForUser(ctx context.Context, userID int64) ([]models.ConversationView, error)
	ListBetweenUsers(ctx context.Context, userA, userB int64) ([]models.Conversation, error)
	SetLastRead(ctx context.Context, conversationID, userID int64, lastRead time.Time) (bool, error)
	SetMuted(ctx context.Context, conversationID, userID int64, muted bool) error
	HideForUser(ctx context.Context, conversationID, userID int64) error
	UnhideForUser(ctx context.Context, conversationID, userID int64) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, item_id, item_title, buyer_id, seller_id, created_at,
    buyer_last_read, seller_last_read, buyer_muted, seller_muted, buyer_deleted, seller_deleted`

// CreateOrGet returns the conversation for the (item, buyer, seller) triple,
// creating it if it does not exist. The second return value reports creation.
func (r *ConversationRepo) CreateOrGet(ctx context.Context, itemID int64, itemTitle string, buyerID, sellerID int64) (models.Conversation, bool, error) {
	if buyerID == sellerID {
		return models.Conversation{}, false, ErrSelfConversation
	}

	var convo models.Conversation
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE item_id=$1 AND buyer_id=$2 AND seller_id=$3`
	err := r.db.GetContext(ctx, &convo, query, itemID, buyerID, sellerID)
	if err == nil {
		return convo, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, false, err
	}

	insert := `INSERT INTO conversations (item_id, item_title, buyer_id, seller_id)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (item_id, buyer_id, seller_id) DO UPDATE SET item_title = EXCLUDED.item_title
        RETURNING ` + conversationColumns
	if err := r.db.GetContext(ctx, &convo, insert, itemID, itemTitle, buyerID, sellerID); err != nil {
		return models.Conversation{}, false, err
	}
	return convo, true, nil
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, conversationID int64) (models.Conversation, error) {
	var convo models.Conversation
	err := r.db.GetContext(ctx, &convo, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return convo, err
}

// IsParticipant checks whether a user is the buyer or the seller.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversations WHERE id=$1 AND (buyer_id=$2 OR seller_id=$2))`,
		conversationID, userID)
	return exists, err
}

// viewSelectFmt serializes a conversation relative to a viewer placeholder:
// last-message preview, the viewer's mute flag and last-read, the counterpart's
// last-read, and the unread count (zero while muted, everything from the other
// side when last-read is null).
const viewSelectFmt = `SELECT c.id, c.item_id, c.item_title, c.buyer_id, c.seller_id, c.created_at,
    lm.body AS last_message_body,
    lm.sender_id AS last_message_sender_id,
    lm.created_at AS last_message_at,
    CASE WHEN c.buyer_id=%[1]s THEN c.buyer_muted ELSE c.seller_muted END AS is_muted,
    CASE WHEN c.buyer_id=%[1]s THEN c.buyer_last_read ELSE c.seller_last_read END AS last_read,
    CASE WHEN c.buyer_id=%[1]s THEN c.seller_last_read ELSE c.buyer_last_read END AS other_last_read,
    CASE WHEN (c.buyer_id=%[1]s AND c.buyer_muted) OR (c.seller_id=%[1]s AND c.seller_muted) THEN 0
        ELSE (SELECT COUNT(*) FROM messages m
            WHERE m.conversation_id = c.id
              AND m.is_deleted = FALSE
              AND m.sender_id <> %[1]s
              AND ((c.buyer_id=%[1]s AND (c.buyer_last_read IS NULL OR m.created_at > c.buyer_last_read))
                OR (c.seller_id=%[1]s AND (c.seller_last_read IS NULL OR m.created_at > c.seller_last_read))))
    END AS unread_count
    FROM conversations c
    LEFT JOIN LATERAL (
        SELECT body, sender_id, created_at FROM messages
        WHERE conversation_id = c.id AND is_deleted = FALSE
        ORDER BY created_at DESC, id DESC LIMIT 1
    ) lm ON TRUE`

// ViewForUser serializes one conversation for one viewer.
func (r *ConversationRepo) ViewForUser(ctx context.Context, conversationID, userID int64) (models.ConversationView, error) {
	query := fmt.Sprintf(viewSelectFmt, "$2") + ` WHERE c.id=$1`
	var view models.ConversationView
	err := r.db.GetContext(ctx, &view, query, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ConversationView{}, ErrConversationNotFound
	}
	return view, err
}

// ListViewsForUser returns the conversations visible to the user: the user is
// a participant, the conversation is not soft-deleted on their side, and no
// block exists between the two participants in either direction.
func (r *ConversationRepo) ListViewsForUser(ctx context.Context, userID int64) ([]models.ConversationView, error) {
	query := fmt.Sprintf(viewSelectFmt, "$1") + ` WHERE (c.buyer_id=$1 OR c.seller_id=$1)
        AND NOT (c.buyer_id=$1 AND c.buyer_deleted)
        AND NOT (c.seller_id=$1 AND c.seller_deleted)
        AND NOT EXISTS (SELECT 1 FROM user_blocks b
            WHERE (b.blocker_id=c.buyer_id AND b.blocked_id=c.seller_id)
               OR (b.blocker_id=c.seller_id AND b.blocked_id=c.buyer_id))
        ORDER BY lm.created_at DESC NULLS LAST, c.created_at DESC`
	views := []models.ConversationView{}
	err := r.db.SelectContext(ctx, &views, query, userID)
	return views, err
}

// ListBetweenUsers returns every conversation where the two users are the
// participant pair, in either role.
func (r *ConversationRepo) ListBetweenUsers(ctx context.Context, userA, userB int64) ([]models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations
        WHERE (buyer_id=$1 AND seller_id=$2) OR (buyer_id=$2 AND seller_id=$1)`
	convos := []models.Conversation{}
	err := r.db.SelectContext(ctx, &convos, query, userA, userB)
	return convos, err
}

// SetLastRead advances the participant's last-read watermark to lastRead. The
// guard makes the write advance-only and is the atomicity guarantee for
// concurrent mark-read calls: a target at or below the stored watermark is a
// changed=false no-op, so interleaved calls can never regress the watermark
// below the latest observed message time, and at most one of two simultaneous
// calls with the same target observes a changed row.
func (r *ConversationRepo) SetLastRead(ctx context.Context, conversationID, userID int64, lastRead time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET
        buyer_last_read  = CASE WHEN buyer_id=$2  THEN $3 ELSE buyer_last_read  END,
        seller_last_read = CASE WHEN seller_id=$2 THEN $3 ELSE seller_last_read END
        WHERE id=$1 AND (buyer_id=$2 OR seller_id=$2)
        AND ((CASE WHEN buyer_id=$2 THEN buyer_last_read ELSE seller_last_read END) IS NULL
          OR (CASE WHEN buyer_id=$2 THEN buyer_last_read ELSE seller_last_read END) < $3)`,
		conversationID, userID, lastRead)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetMuted persists the participant's mute flag unconditionally.
func (r *ConversationRepo) SetMuted(ctx context.Context, conversationID, userID int64, muted bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE conversations SET
        buyer_muted  = CASE WHEN buyer_id=$2  THEN $3 ELSE buyer_muted  END,
        seller_muted = CASE WHEN seller_id=$2 THEN $3 ELSE seller_muted END
        WHERE id=$1 AND (buyer_id=$2 OR seller_id=$2)`,
		conversationID, userID, muted)
	return err
}

// HideForUser soft-deletes the conversation on the participant's side.
func (r *ConversationRepo) HideForUser(ctx context.Context, conversationID, userID int64) error {
	return r.setDeleted(ctx, conversationID, userID, true)
}

// UnhideForUser clears the participant's soft-delete flag. A new message
// unhides the conversation for both sides.
func (r *ConversationRepo) UnhideForUser(ctx context.Context, conversationID, userID int64) error {
	return r.setDeleted(ctx, conversationID, userID, false)
}

func (r *ConversationRepo) setDeleted(ctx context.Context, conversationID, userID int64, deleted bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE conversations SET
        buyer_deleted  = CASE WHEN buyer_id=$2  THEN $3 ELSE buyer_deleted  END,
        seller_deleted = CASE WHEN seller_id=$2 THEN $3 ELSE seller_deleted END
        WHERE id=$1 AND (buyer_id=$2 OR seller_id=$2)`,
		conversationID, userID, deleted)
	return err
}
