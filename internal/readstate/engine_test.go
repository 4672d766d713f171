package readstate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
)

func conversation(buyerLastRead *time.Time) models.Conversation {
	return models.Conversation{ID: 10, BuyerID: 1, SellerID: 2, BuyerLastRead: buyerLastRead}
}

func TestUnreadCountNullWatermarkCountsEverything(t *testing.T) {
	convos := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	engine := NewEngine(convos, messages)

	messages.On("CountUnread", mock.Anything, int64(10), int64(2), (*time.Time)(nil)).Return(4, nil).Once()

	count, err := engine.UnreadCount(context.Background(), conversation(nil), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	messages.AssertExpectations(t)
}

func TestUnreadCountUsesWatermark(t *testing.T) {
	convos := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	engine := NewEngine(convos, messages)

	watermark := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	messages.On("CountUnread", mock.Anything, int64(10), int64(2), &watermark).Return(2, nil).Once()

	count, err := engine.UnreadCount(context.Background(), conversation(&watermark), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	messages.AssertExpectations(t)
}

func TestUnreadCountZeroWhileMuted(t *testing.T) {
	engine := NewEngine(new(mocks.ConversationRepositoryMock), new(mocks.MessageRepositoryMock))

	convo := conversation(nil)
	convo.BuyerMuted = true

	count, err := engine.UnreadCount(context.Background(), convo, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUnreadCountZeroForNonParticipant(t *testing.T) {
	engine := NewEngine(new(mocks.ConversationRepositoryMock), new(mocks.MessageRepositoryMock))

	count, err := engine.UnreadCount(context.Background(), conversation(nil), 99)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkReadMovesWatermarkToLatestMessage(t *testing.T) {
	convos := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	engine := NewEngine(convos, messages)

	latest := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	messages.On("LatestCreatedAt", mock.Anything, int64(10)).Return(&latest, nil).Once()
	convos.On("SetLastRead", mock.Anything, int64(10), int64(1), latest).Return(true, nil).Once()

	changed, lastRead, err := engine.MarkRead(context.Background(), conversation(nil), 1)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, lastRead.Equal(latest))
	convos.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestMarkReadEmptyConversationUsesNow(t *testing.T) {
	convos := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	engine := NewEngine(convos, messages)

	now := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	messages.On("LatestCreatedAt", mock.Anything, int64(10)).Return((*time.Time)(nil), nil).Once()
	convos.On("SetLastRead", mock.Anything, int64(10), int64(1), now).Return(true, nil).Once()

	changed, lastRead, err := engine.MarkRead(context.Background(), conversation(nil), 1)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, lastRead.Equal(now))
}

func TestMarkReadRepeatedCallReportsUnchanged(t *testing.T) {
	convos := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	engine := NewEngine(convos, messages)

	latest := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	messages.On("LatestCreatedAt", mock.Anything, int64(10)).Return(&latest, nil).Once()

	changed, lastRead, err := engine.MarkRead(context.Background(), conversation(&latest), 1)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, lastRead.Equal(latest))

	// No write reaches the store when the watermark already matches.
	convos.AssertNotCalled(t, "SetLastRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkReadStaleTargetDoesNotRegressWatermark(t *testing.T) {
	convos := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	engine := NewEngine(convos, messages)

	// A concurrent mark-read already stored 10:05; this call's latest-message
	// read observed only 10:00. The watermark must stay at 10:05.
	stored := time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)
	observed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	messages.On("LatestCreatedAt", mock.Anything, int64(10)).Return(&observed, nil).Once()

	changed, _, err := engine.MarkRead(context.Background(), conversation(&stored), 1)
	require.NoError(t, err)
	assert.False(t, changed)
	convos.AssertNotCalled(t, "SetLastRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkReadNonParticipantIsNoOp(t *testing.T) {
	convos := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	engine := NewEngine(convos, messages)

	changed, _, err := engine.MarkRead(context.Background(), conversation(nil), 99)
	require.NoError(t, err)
	assert.False(t, changed)
	messages.AssertNotCalled(t, "LatestCreatedAt", mock.Anything, mock.Anything)
}

func TestSetMutedDelegatesToStore(t *testing.T) {
	convos := new(mocks.ConversationRepositoryMock)
	engine := NewEngine(convos, new(mocks.MessageRepositoryMock))

	convos.On("SetMuted", mock.Anything, int64(10), int64(1), true).Return(nil).Once()

	require.NoError(t, engine.SetMuted(context.Background(), conversation(nil), 1, true))
	convos.AssertExpectations(t)
}
