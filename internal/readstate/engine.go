// Package readstate computes and mutates per-participant read state on a
// conversation: unread counts, the last-read watermark and the mute flag.
package readstate

import (
	"context"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// Engine evaluates unread counts and applies read-receipt transitions.
type Engine struct {
	convos   repositories.ConversationRepository
	messages repositories.MessageRepository
	now      func() time.Time
}

// NewEngine constructs an Engine over the conversation and message stores.
func NewEngine(convos repositories.ConversationRepository, messages repositories.MessageRepository) *Engine {
	return &Engine{convos: convos, messages: messages, now: time.Now}
}

// UnreadCount returns the number of messages in the conversation the user has
// not read: non-deleted messages from the other participant created after the
// user's last-read watermark. A null watermark means nothing was ever read, so
// every message from the other side counts. Non-participants and muted
// participants always get zero.
func (e *Engine) UnreadCount(ctx context.Context, convo models.Conversation, userID int64) (int, error) {
	if !convo.IsParticipant(userID) {
		return 0, nil
	}
	if convo.MutedFor(userID) {
		return 0, nil
	}
	return e.messages.CountUnread(ctx, convo.ID, convo.OtherParticipant(userID), convo.LastReadFor(userID))
}

// MarkRead advances the user's last-read watermark to the creation time of
// the newest non-deleted message, or to the current time when the
// conversation is empty. The watermark only moves forward: a target at or
// below the stored value reports changed=false and emits no event upstream,
// both here and in the store's conditional write, so a mark-read racing a
// newer one can never drag the watermark backwards.
func (e *Engine) MarkRead(ctx context.Context, convo models.Conversation, userID int64) (bool, time.Time, error) {
	if !convo.IsParticipant(userID) {
		return false, time.Time{}, nil
	}

	latest, err := e.messages.LatestCreatedAt(ctx, convo.ID)
	if err != nil {
		return false, time.Time{}, err
	}
	target := e.now().UTC()
	if latest != nil {
		target = *latest
	}

	if current := convo.LastReadFor(userID); current != nil && !target.After(*current) {
		return false, target, nil
	}

	changed, err := e.convos.SetLastRead(ctx, convo.ID, userID, target)
	if err != nil {
		return false, time.Time{}, err
	}
	return changed, target, nil
}

// SetMuted persists the participant's mute flag. The write is unconditional
// and never feeds the read-state comparison.
func (e *Engine) SetMuted(ctx context.Context, convo models.Conversation, userID int64, muted bool) error {
	return e.convos.SetMuted(ctx, convo.ID, userID, muted)
}
