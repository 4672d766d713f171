package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/clients"
	"messaging-service/internal/models"
	"messaging-service/internal/readstate"
	"messaging-service/internal/repositories"
	"messaging-service/internal/views"
	"messaging-service/internal/ws"
)

// ConversationHandler manages the conversation and message REST endpoints.
type ConversationHandler struct {
	convos    repositories.ConversationRepository
	messages  repositories.MessageRepository
	blocks    repositories.BlockRepository
	readState *readstate.Engine
	views     views.ConversationViews
	catalog   clients.Catalog
	users     clients.UserDirectory
	router    *ws.Router
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(
	convos repositories.ConversationRepository,
	messages repositories.MessageRepository,
	blocks repositories.BlockRepository,
	readState *readstate.Engine,
	convoViews views.ConversationViews,
	catalog clients.Catalog,
	users clients.UserDirectory,
	router *ws.Router,
) *ConversationHandler {
	return &ConversationHandler{
		convos:    convos,
		messages:  messages,
		blocks:    blocks,
		readState: readState,
		views:     convoViews,
		catalog:   catalog,
		users:     users,
		router:    router,
	}
}

// ListConversations returns the caller's inbox: every visible conversation
// serialized relative to the caller.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt64("userID")

	list, err := h.views.SnapshotFor(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	if list == nil {
		list = []models.ConversationView{}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

// StartConversation creates or returns the conversation for an item between
// the caller (buyer) and the item's seller.
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	var req struct {
		ItemID int64 `json:"item_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")
	item, err := h.catalog.GetItem(c.Request.Context(), req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to resolve item"})
		return
	}
	if item.SellerID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself about your own item"})
		return
	}

	blocked, err := h.blocks.IsBlocked(c.Request.Context(), userID, item.SellerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify block status"})
		return
	}
	if blocked {
		c.JSON(http.StatusForbidden, gin.H{"error": "you cannot message this user"})
		return
	}

	convo, created, err := h.convos.CreateOrGet(c.Request.Context(), item.ID, item.Title, userID, item.SellerID)
	if err != nil {
		if errors.Is(err, repositories.ErrSelfConversation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself about your own item"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	view, err := h.views.ConversationFor(c.Request.Context(), convo.ID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversation"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, view)
}

// GetMessages returns the non-deleted messages of a conversation, paginated
// and optionally filtered by body substring, image presence and sender. The
// sender filter accepts "me", "other" or a numeric user id.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	convo, ok := h.participantConversation(c)
	if !ok {
		return
	}

	filter := repositories.MessageFilter{
		Query:      c.Query("q"),
		HasImage:   c.Query("has_image") == "true" || c.Query("has_image") == "1",
		NewestLast: true,
	}
	if from := c.Query("from"); from != "" {
		userID := c.GetInt64("userID")
		switch from {
		case "me":
			filter.FromSender = userID
		case "other":
			filter.FromSender = convo.OtherParticipant(userID)
		default:
			senderID, err := strconv.ParseInt(from, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sender filter"})
				return
			}
			filter.FromSender = senderID
		}
	}
	if newestLast := c.Query("newest_last"); newestLast != "" {
		filter.NewestLast = newestLast == "true" || newestLast == "1"
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	msgs, err := h.messages.ListForConversation(c.Request.Context(), convo.ID, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	h.fillSenderUsernames(c, msgs)

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores a message and fans it out to the chat room and both
// inboxes.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	convo, ok := h.participantConversation(c)
	if !ok {
		return
	}
	userID := c.GetInt64("userID")

	var req struct {
		Body     string `json:"body"`
		ImageURL string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" && req.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message must contain text or an image"})
		return
	}

	blocked, err := h.blocks.IsBlocked(c.Request.Context(), userID, convo.OtherParticipant(userID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify block status"})
		return
	}
	if blocked {
		c.JSON(http.StatusForbidden, gin.H{"error": "you cannot message this user"})
		return
	}

	var imageURL *string
	if req.ImageURL != "" {
		imageURL = &req.ImageURL
	}
	msg, err := h.messages.Create(c.Request.Context(), convo.ID, userID, body, imageURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send message"})
		return
	}
	msg.SenderUsername = c.GetString("username")

	// A new message makes the conversation visible again on both sides.
	_ = h.convos.UnhideForUser(c.Request.Context(), convo.ID, convo.BuyerID)
	_ = h.convos.UnhideForUser(c.Request.Context(), convo.ID, convo.SellerID)

	h.router.MessageCreated(c.Request.Context(), convo, msg)

	c.JSON(http.StatusCreated, msg)
}

// MarkRead advances the caller's last-read watermark. A read receipt and
// inbox upserts are broadcast only when the stored watermark actually moved.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	convo, ok := h.participantConversation(c)
	if !ok {
		return
	}
	userID := c.GetInt64("userID")

	changed, lastRead, err := h.readState.MarkRead(c.Request.Context(), convo, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark conversation read"})
		return
	}
	if changed {
		h.router.ConversationRead(c.Request.Context(), convo, c.GetString("username"), lastRead)
	}

	c.JSON(http.StatusOK, gin.H{"changed": changed, "last_read_for_me": lastRead})
}

// Mute toggles the caller's mute flag. The change is synchronous and private:
// the response carries the new state and no event is broadcast.
func (h *ConversationHandler) Mute(c *gin.Context) {
	convo, ok := h.participantConversation(c)
	if !ok {
		return
	}
	userID := c.GetInt64("userID")

	var req struct {
		Muted *bool `json:"muted" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.readState.SetMuted(c.Request.Context(), convo, userID, *req.Muted); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update mute state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": convo.ID, "is_muted_for_me": *req.Muted})
}

// DeleteForMe hides the conversation on the caller's side only. The caller's
// open inboxes are told the conversation left their list; the counterpart
// sees nothing.
func (h *ConversationHandler) DeleteForMe(c *gin.Context) {
	convo, ok := h.participantConversation(c)
	if !ok {
		return
	}
	userID := c.GetInt64("userID")

	if err := h.convos.HideForUser(c.Request.Context(), convo.ID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete conversation"})
		return
	}
	h.router.ConversationDeleted(convo.ID, userID)

	c.Status(http.StatusNoContent)
}

// DeleteMessage soft-deletes a message the caller sent.
func (h *ConversationHandler) DeleteMessage(c *gin.Context) {
	convo, ok := h.participantConversation(c)
	if !ok {
		return
	}
	userID := c.GetInt64("userID")

	messageID, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, err := h.messages.Get(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		return
	}
	if msg.ConversationID != convo.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if msg.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can delete a message"})
		return
	}

	if err := h.messages.SoftDelete(c.Request.Context(), messageID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		return
	}

	c.Status(http.StatusNoContent)
}

// participantConversation resolves the conversation path parameter and
// enforces that the caller is one of its two participants.
func (h *ConversationHandler) participantConversation(c *gin.Context) (models.Conversation, bool) {
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return models.Conversation{}, false
	}

	convo, err := h.convos.Get(c.Request.Context(), conversationID)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		}
		return models.Conversation{}, false
	}

	userID := c.GetInt64("userID")
	if !convo.IsParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
		return models.Conversation{}, false
	}
	return convo, true
}

// fillSenderUsernames decorates messages with display names. Directory
// failures degrade to id-only messages.
func (h *ConversationHandler) fillSenderUsernames(c *gin.Context, msgs []models.Message) {
	idSet := map[int64]struct{}{}
	ids := make([]int64, 0, 2)
	for _, m := range msgs {
		if _, ok := idSet[m.SenderID]; !ok {
			idSet[m.SenderID] = struct{}{}
			ids = append(ids, m.SenderID)
		}
	}
	if len(ids) == 0 {
		return
	}

	users, err := h.users.BulkUsers(c.Request.Context(), ids)
	if err != nil {
		return
	}
	nameByID := make(map[int64]string, len(users))
	for _, u := range users {
		nameByID[u.ID] = u.Username
	}
	for i := range msgs {
		msgs[i].SenderUsername = nameByID[msgs[i].SenderID]
	}
}
