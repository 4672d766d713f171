package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrBlockNotFound = errors.New("block not found")

// BlockRepository abstracts user blocks and moderation reports.
type BlockRepository interface {
	Create(ctx context.Context, blockerID, blockedID int64) (models.UserBlock, error)
	Delete(ctx context.Context, blockID, blockerID int64) error
	ListForUser(ctx context.Context, blockerID int64) ([]models.UserBlock, error)
	IsBlocked(ctx context.Context, userA, userB int64) (bool, error)
	CreateReport(ctx context.Context, report models.UserReport) (models.UserReport, error)
	ListReports(ctx context.Context, reporterID int64) ([]models.UserReport, error)
}

// BlockRepo is a sqlx implementation of BlockRepository.
type BlockRepo struct {
	db *sqlx.DB
}

// NewBlockRepo constructs a BlockRepo.
func NewBlockRepo(db *sqlx.DB) *BlockRepo {
	return &BlockRepo{db: db}
}

// Create inserts a block; creating the same ordered pair twice returns the
// existing row.
func (r *BlockRepo) Create(ctx context.Context, blockerID, blockedID int64) (models.UserBlock, error) {
	var block models.UserBlock
	err := r.db.GetContext(ctx, &block,
		`INSERT INTO user_blocks (blocker_id, blocked_id) VALUES ($1, $2)
        ON CONFLICT (blocker_id, blocked_id) DO UPDATE SET blocker_id = EXCLUDED.blocker_id
        RETURNING id, blocker_id, blocked_id, created_at`,
		blockerID, blockedID)
	return block, err
}

// Delete removes a block owned by the blocker.
func (r *BlockRepo) Delete(ctx context.Context, blockID, blockerID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_blocks WHERE id=$1 AND blocker_id=$2`, blockID, blockerID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrBlockNotFound
	}
	return nil
}

// ListForUser returns the blocks created by the user.
func (r *BlockRepo) ListForUser(ctx context.Context, blockerID int64) ([]models.UserBlock, error) {
	blocks := []models.UserBlock{}
	err := r.db.SelectContext(ctx, &blocks,
		`SELECT id, blocker_id, blocked_id, created_at FROM user_blocks WHERE blocker_id=$1 ORDER BY created_at DESC`,
		blockerID)
	return blocks, err
}

// IsBlocked reports whether a block exists between the users in either
// direction.
func (r *BlockRepo) IsBlocked(ctx context.Context, userA, userB int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM user_blocks
            WHERE (blocker_id=$1 AND blocked_id=$2) OR (blocker_id=$2 AND blocked_id=$1))`,
		userA, userB)
	return exists, err
}

// CreateReport stores a moderation report.
func (r *BlockRepo) CreateReport(ctx context.Context, report models.UserReport) (models.UserReport, error) {
	var created models.UserReport
	err := r.db.GetContext(ctx, &created,
		`INSERT INTO user_reports (reporter_id, reported_id, conversation_id, message_id, reason, details)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, reporter_id, reported_id, conversation_id, message_id, reason, details, handled, created_at`,
		report.ReporterID, report.ReportedID, report.ConversationID, report.MessageID, report.Reason, report.Details)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserReport{}, err
	}
	return created, err
}

// ListReports returns reports filed by the user.
func (r *BlockRepo) ListReports(ctx context.Context, reporterID int64) ([]models.UserReport, error) {
	reports := []models.UserReport{}
	err := r.db.SelectContext(ctx, &reports,
		`SELECT id, reporter_id, reported_id, conversation_id, message_id, reason, details, handled, created_at
        FROM user_reports WHERE reporter_id=$1 ORDER BY created_at DESC`,
		reporterID)
	return reports, err
}
