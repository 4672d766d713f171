package models

import "time"

// Conversation is the unique messaging thread between a buyer and a seller
// about one item. Exactly two participants; buyer == seller is forbidden.
type Conversation struct {
	ID             int64      `db:"id" json:"id"`
	ItemID         int64      `db:"item_id" json:"item"`
	ItemTitle      string     `db:"item_title" json:"item_title"`
	BuyerID        int64      `db:"buyer_id" json:"buyer"`
	SellerID       int64      `db:"seller_id" json:"seller"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	BuyerLastRead  *time.Time `db:"buyer_last_read" json:"-"`
	SellerLastRead *time.Time `db:"seller_last_read" json:"-"`
	BuyerMuted     bool       `db:"buyer_muted" json:"-"`
	SellerMuted    bool       `db:"seller_muted" json:"-"`
	BuyerDeleted   bool       `db:"buyer_deleted" json:"-"`
	SellerDeleted  bool       `db:"seller_deleted" json:"-"`
}

// IsParticipant reports whether the user is the buyer or the seller.
func (c Conversation) IsParticipant(userID int64) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

// OtherParticipant returns the counterpart of the given participant.
func (c Conversation) OtherParticipant(userID int64) int64 {
	if userID == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}

// LastReadFor returns the participant's last-read watermark. Nil means the
// participant has never read the conversation.
func (c Conversation) LastReadFor(userID int64) *time.Time {
	switch userID {
	case c.BuyerID:
		return c.BuyerLastRead
	case c.SellerID:
		return c.SellerLastRead
	}
	return nil
}

// MutedFor reports the participant's mute flag.
func (c Conversation) MutedFor(userID int64) bool {
	switch userID {
	case c.BuyerID:
		return c.BuyerMuted
	case c.SellerID:
		return c.SellerMuted
	}
	return false
}

// DeletedFor reports the participant's soft-delete flag.
func (c Conversation) DeletedFor(userID int64) bool {
	switch userID {
	case c.BuyerID:
		return c.BuyerDeleted
	case c.SellerID:
		return c.SellerDeleted
	}
	return false
}

// ConversationView is a conversation serialized for one specific viewer.
// Unread count, mute flag and the counterpart's last-read are relative to the
// viewer, so a view is always built per recipient, never shared.
type ConversationView struct {
	ID                        int64      `db:"id" json:"id"`
	ItemID                    int64      `db:"item_id" json:"item"`
	ItemTitle                 string     `db:"item_title" json:"item_title"`
	BuyerID                   int64      `db:"buyer_id" json:"buyer"`
	BuyerUsername             string     `json:"buyer_username"`
	SellerID                  int64      `db:"seller_id" json:"seller"`
	SellerUsername            string     `json:"seller_username"`
	CreatedAt                 time.Time  `db:"created_at" json:"created_at"`
	LastMessageBody           *string    `db:"last_message_body" json:"last_message_body"`
	LastMessageSenderID       *int64     `db:"last_message_sender_id" json:"-"`
	LastMessageSenderUsername *string    `json:"last_message_sender_username"`
	LastMessageAt             *time.Time `db:"last_message_at" json:"last_message_at"`
	IsMutedForMe              bool       `db:"is_muted" json:"is_muted_for_me"`
	LastReadForMe             *time.Time `db:"last_read" json:"last_read_for_me"`
	UnreadCountForMe          int        `db:"unread_count" json:"unread_count_for_me"`
	OtherLastReadForMe        *time.Time `db:"other_last_read" json:"other_last_read_for_me"`
}
