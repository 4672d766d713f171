package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/clients"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/views"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)

func (m *ConversationRepositoryMock) CreateOrGet(ctx context.Context, itemID int64, itemTitle string, buyerID, sellerID int64) (models.Conversation, bool, error) {
	args := m.Called(ctx, itemID, itemTitle, buyerID, sellerID)
	var convo models.Conversation
	if val := args.Get(0); val != nil {
		convo = val.(models.Conversation)
	}
	return convo, args.Bool(1), args.Error(2)
}

func (m *ConversationRepositoryMock) Get(ctx context.Context, conversationID int64) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var convo models.Conversation
	if val := args.Get(0); val != nil {
		convo = val.(models.Conversation)
	}
	return convo, args.Error(1)
}

func (m *ConversationRepositoryMock) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) ViewForUser(ctx context.Context, conversationID, userID int64) (models.ConversationView, error) {
	args := m.Called(ctx, conversationID, userID)
	var view models.ConversationView
	if val := args.Get(0); val != nil {
		view = val.(models.ConversationView)
	}
	return view, args.Error(1)
}

func (m *ConversationRepositoryMock) ListViewsForUser(ctx context.Context, userID int64) ([]models.ConversationView, error) {
	args := m.Called(ctx, userID)
	var list []models.ConversationView
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationView)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) ListBetweenUsers(ctx context.Context, userA, userB int64) ([]models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) SetLastRead(ctx context.Context, conversationID, userID int64, lastRead time.Time) (bool, error) {
	args := m.Called(ctx, conversationID, userID, lastRead)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) SetMuted(ctx context.Context, conversationID, userID int64, muted bool) error {
	args := m.Called(ctx, conversationID, userID, muted)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) HideForUser(ctx context.Context, conversationID, userID int64) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) UnhideForUser(ctx context.Context, conversationID, userID int64) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)

func (m *MessageRepositoryMock) Create(ctx context.Context, conversationID, senderID int64, body string, imageURL *string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, body, imageURL)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListForConversation(ctx context.Context, conversationID int64, filter repositories.MessageFilter) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, filter)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) LatestCreatedAt(ctx context.Context, conversationID int64) (*time.Time, error) {
	args := m.Called(ctx, conversationID)
	var latest *time.Time
	if val := args.Get(0); val != nil {
		latest = val.(*time.Time)
	}
	return latest, args.Error(1)
}

func (m *MessageRepositoryMock) CountUnread(ctx context.Context, conversationID, otherID int64, after *time.Time) (int, error) {
	args := m.Called(ctx, conversationID, otherID, after)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID, senderID int64) error {
	args := m.Called(ctx, messageID, senderID)
	return args.Error(0)
}

type BlockRepositoryMock struct {
	mock.Mock
}

var _ repositories.BlockRepository = (*BlockRepositoryMock)(nil)

func (m *BlockRepositoryMock) Create(ctx context.Context, blockerID, blockedID int64) (models.UserBlock, error) {
	args := m.Called(ctx, blockerID, blockedID)
	var block models.UserBlock
	if val := args.Get(0); val != nil {
		block = val.(models.UserBlock)
	}
	return block, args.Error(1)
}

func (m *BlockRepositoryMock) Delete(ctx context.Context, blockID, blockerID int64) error {
	args := m.Called(ctx, blockID, blockerID)
	return args.Error(0)
}

func (m *BlockRepositoryMock) ListForUser(ctx context.Context, blockerID int64) ([]models.UserBlock, error) {
	args := m.Called(ctx, blockerID)
	var blocks []models.UserBlock
	if val := args.Get(0); val != nil {
		blocks = val.([]models.UserBlock)
	}
	return blocks, args.Error(1)
}

func (m *BlockRepositoryMock) IsBlocked(ctx context.Context, userA, userB int64) (bool, error) {
	args := m.Called(ctx, userA, userB)
	return args.Bool(0), args.Error(1)
}

func (m *BlockRepositoryMock) CreateReport(ctx context.Context, report models.UserReport) (models.UserReport, error) {
	args := m.Called(ctx, report)
	var created models.UserReport
	if val := args.Get(0); val != nil {
		created = val.(models.UserReport)
	}
	return created, args.Error(1)
}

func (m *BlockRepositoryMock) ListReports(ctx context.Context, reporterID int64) ([]models.UserReport, error) {
	args := m.Called(ctx, reporterID)
	var reports []models.UserReport
	if val := args.Get(0); val != nil {
		reports = val.([]models.UserReport)
	}
	return reports, args.Error(1)
}

type ConversationViewsMock struct {
	mock.Mock
}

var _ views.ConversationViews = (*ConversationViewsMock)(nil)

func (m *ConversationViewsMock) ConversationFor(ctx context.Context, conversationID, forUserID int64) (models.ConversationView, error) {
	args := m.Called(ctx, conversationID, forUserID)
	var view models.ConversationView
	if val := args.Get(0); val != nil {
		view = val.(models.ConversationView)
	}
	return view, args.Error(1)
}

func (m *ConversationViewsMock) SnapshotFor(ctx context.Context, forUserID int64) ([]models.ConversationView, error) {
	args := m.Called(ctx, forUserID)
	var list []models.ConversationView
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationView)
	}
	return list, args.Error(1)
}

type UserDirectoryMock struct {
	mock.Mock
}

var _ clients.UserDirectory = (*UserDirectoryMock)(nil)

func (m *UserDirectoryMock) GetUser(ctx context.Context, userID int64) (clients.UserInfo, error) {
	args := m.Called(ctx, userID)
	var user clients.UserInfo
	if val := args.Get(0); val != nil {
		user = val.(clients.UserInfo)
	}
	return user, args.Error(1)
}

func (m *UserDirectoryMock) BulkUsers(ctx context.Context, userIDs []int64) ([]clients.UserInfo, error) {
	args := m.Called(ctx, userIDs)
	var users []clients.UserInfo
	if val := args.Get(0); val != nil {
		users = val.([]clients.UserInfo)
	}
	return users, args.Error(1)
}

type CatalogMock struct {
	mock.Mock
}

var _ clients.Catalog = (*CatalogMock)(nil)

func (m *CatalogMock) GetItem(ctx context.Context, itemID int64) (clients.ItemInfo, error) {
	args := m.Called(ctx, itemID)
	var item clients.ItemInfo
	if val := args.Get(0); val != nil {
		item = val.(clients.ItemInfo)
	}
	return item, args.Error(1)
}
