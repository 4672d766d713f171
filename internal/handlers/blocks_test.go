package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

func newBlockHandler() (*BlockHandler, *mocks.BlockRepositoryMock, *mocks.ConversationRepositoryMock, *mocks.PublisherMock) {
	blocks := new(mocks.BlockRepositoryMock)
	convos := new(mocks.ConversationRepositoryMock)
	publisher := new(mocks.PublisherMock)
	router := ws.NewRouter(ws.NewHub(), new(mocks.ConversationViewsMock))
	audit := telemetry.NewAuditEmitter(publisher, "audit.messaging", "messaging-service", "test")
	return NewBlockHandler(blocks, convos, router, audit), blocks, convos, publisher
}

func setupBlockRouter(handler *BlockHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", int64(1))
		c.Set("username", "alice")
		c.Next()
	})
	r.GET("/blocks", handler.ListBlocks)
	r.POST("/blocks", handler.CreateBlock)
	r.DELETE("/blocks/:block_id", handler.DeleteBlock)
	r.GET("/blocks/is-blocked/:user_id", handler.IsBlocked)
	r.GET("/reports", handler.ListReports)
	r.POST("/reports", handler.CreateReport)
	return r
}

func TestCreateBlockHidesConversations(t *testing.T) {
	handler, blocks, convos, _ := newBlockHandler()
	router := setupBlockRouter(handler)

	blocks.On("Create", mock.Anything, int64(1), int64(2)).
		Return(models.UserBlock{ID: 4, BlockerID: 1, BlockedID: 2}, nil).Once()
	convos.On("ListBetweenUsers", mock.Anything, int64(1), int64(2)).
		Return([]models.Conversation{{ID: 10, BuyerID: 1, SellerID: 2}}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/blocks", bytes.NewBufferString(`{"blocked_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	blocks.AssertExpectations(t)
	convos.AssertExpectations(t)
}

func TestCreateBlockRejectsSelf(t *testing.T) {
	handler, blocks, _, _ := newBlockHandler()
	router := setupBlockRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/blocks", bytes.NewBufferString(`{"blocked_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	blocks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestListBlocksEmptyListIsNotNull(t *testing.T) {
	handler, blocks, _, _ := newBlockHandler()
	router := setupBlockRouter(handler)

	blocks.On("ListForUser", mock.Anything, int64(1)).Return(([]models.UserBlock)(nil), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/blocks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"blocks":[]`)
}

func TestDeleteBlockNotFound(t *testing.T) {
	handler, blocks, _, _ := newBlockHandler()
	router := setupBlockRouter(handler)

	blocks.On("Delete", mock.Anything, int64(4), int64(1)).Return(repositories.ErrBlockNotFound).Once()

	req := httptest.NewRequest(http.MethodDelete, "/blocks/4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteBlockSuccess(t *testing.T) {
	handler, blocks, _, _ := newBlockHandler()
	router := setupBlockRouter(handler)

	blocks.On("Delete", mock.Anything, int64(4), int64(1)).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/blocks/4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	blocks.AssertExpectations(t)
}

func TestIsBlockedReportsEitherDirection(t *testing.T) {
	handler, blocks, _, _ := newBlockHandler()
	router := setupBlockRouter(handler)

	blocks.On("IsBlocked", mock.Anything, int64(1), int64(2)).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/blocks/is-blocked/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_blocked":true`)
	blocks.AssertExpectations(t)
}

func TestIsBlockedRejectsBadUserID(t *testing.T) {
	handler, blocks, _, _ := newBlockHandler()
	router := setupBlockRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/blocks/is-blocked/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	blocks.AssertNotCalled(t, "IsBlocked", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateReportEmitsAudit(t *testing.T) {
	handler, blocks, _, publisher := newBlockHandler()
	router := setupBlockRouter(handler)

	blocks.On("CreateReport", mock.Anything, mock.MatchedBy(func(r models.UserReport) bool {
		return r.ReporterID == 1 && r.ReportedID == 2 && r.Reason == "spam"
	})).Return(models.UserReport{ID: 9, ReporterID: 1, ReportedID: 2, Reason: "spam"}, nil).Once()
	publisher.On("Publish", mock.Anything, "audit.messaging", mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/reports", bytes.NewBufferString(`{"reported_id":2,"reason":"spam"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	blocks.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestCreateReportRejectsSelf(t *testing.T) {
	handler, blocks, _, _ := newBlockHandler()
	router := setupBlockRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/reports", bytes.NewBufferString(`{"reported_id":1,"reason":"spam"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	blocks.AssertNotCalled(t, "CreateReport", mock.Anything, mock.Anything)
}

func TestListReportsSuccess(t *testing.T) {
	handler, blocks, _, _ := newBlockHandler()
	router := setupBlockRouter(handler)

	blocks.On("ListReports", mock.Anything, int64(1)).
		Return([]models.UserReport{{ID: 9, ReporterID: 1, ReportedID: 2}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	blocks.AssertExpectations(t)
}
