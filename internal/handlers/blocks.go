package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

// BlockHandler manages user blocks and moderation reports.
type BlockHandler struct {
	blocks repositories.BlockRepository
	convos repositories.ConversationRepository
	router *ws.Router
	audit  *telemetry.AuditEmitter
}

// NewBlockHandler builds a BlockHandler.
func NewBlockHandler(blocks repositories.BlockRepository, convos repositories.ConversationRepository, router *ws.Router, audit *telemetry.AuditEmitter) *BlockHandler {
	return &BlockHandler{blocks: blocks, convos: convos, router: router, audit: audit}
}

// CreateBlock blocks another user. Conversations between the pair disappear
// from both inboxes immediately; the rows stay in the store and reappear when
// the block is lifted.
func (h *BlockHandler) CreateBlock(c *gin.Context) {
	var req struct {
		BlockedID int64 `json:"blocked_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")
	if req.BlockedID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot block yourself"})
		return
	}

	block, err := h.blocks.Create(c.Request.Context(), userID, req.BlockedID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create block"})
		return
	}

	convos, err := h.convos.ListBetweenUsers(c.Request.Context(), userID, req.BlockedID)
	if err == nil {
		for _, convo := range convos {
			h.router.ConversationDeleted(convo.ID, convo.BuyerID, convo.SellerID)
		}
	}

	c.JSON(http.StatusCreated, block)
}

// ListBlocks returns the blocks the caller created.
func (h *BlockHandler) ListBlocks(c *gin.Context) {
	userID := c.GetInt64("userID")
	blocks, err := h.blocks.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load blocks"})
		return
	}
	if blocks == nil {
		blocks = []models.UserBlock{}
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

// DeleteBlock lifts a block the caller created.
func (h *BlockHandler) DeleteBlock(c *gin.Context) {
	blockID, err := strconv.ParseInt(c.Param("block_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid block id"})
		return
	}

	userID := c.GetInt64("userID")
	if err := h.blocks.Delete(c.Request.Context(), blockID, userID); err != nil {
		if errors.Is(err, repositories.ErrBlockNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete block"})
		return
	}

	c.Status(http.StatusNoContent)
}

// IsBlocked reports whether a block exists between the caller and the named
// user, in either direction.
func (h *BlockHandler) IsBlocked(c *gin.Context) {
	otherID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID := c.GetInt64("userID")
	blocked, err := h.blocks.IsBlocked(c.Request.Context(), userID, otherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check block status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"is_blocked": blocked})
}

// CreateReport files a moderation report against another user, optionally
// anchored to a conversation or message. Reports are audit-logged.
func (h *BlockHandler) CreateReport(c *gin.Context) {
	var req struct {
		ReportedID     int64  `json:"reported_id" binding:"required"`
		ConversationID *int64 `json:"conversation_id"`
		MessageID      *int64 `json:"message_id"`
		Reason         string `json:"reason" binding:"required"`
		Details        string `json:"details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")
	if req.ReportedID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot report yourself"})
		return
	}

	report, err := h.blocks.CreateReport(c.Request.Context(), models.UserReport{
		ReporterID:     userID,
		ReportedID:     req.ReportedID,
		ConversationID: req.ConversationID,
		MessageID:      req.MessageID,
		Reason:         req.Reason,
		Details:        req.Details,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create report"})
		return
	}

	h.audit.Emit(c.Request.Context(), "WARNING",
		fmt.Sprintf("user report filed report_id=%d reported_id=%d reason=%s", report.ID, report.ReportedID, report.Reason),
		requestIDFromContext(c), userIDFromContext(c))

	c.JSON(http.StatusCreated, report)
}

// ListReports returns the reports the caller filed.
func (h *BlockHandler) ListReports(c *gin.Context) {
	userID := c.GetInt64("userID")
	reports, err := h.blocks.ListReports(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reports"})
		return
	}
	if reports == nil {
		reports = []models.UserReport{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
