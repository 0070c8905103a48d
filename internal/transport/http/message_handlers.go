package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/motormarket/motorchat-server/internal/chat"
	"github.com/motormarket/motorchat-server/internal/metrics"
	"github.com/motormarket/motorchat-server/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// MessageHandlers provides HTTP handlers for the REST fallback of the
// messaging core. Side effects are identical to their socket counterparts:
// both paths share the same gateway and read receipt coordinator.
type MessageHandlers struct {
	svc   *chat.Service
	store store.Store
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(svc *chat.Service, st store.Store, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		svc:   svc,
		store: st,
		log:   logger,
	}
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	RecipientID int64  `json:"recipient_id" binding:"required"`
	ListingID   *int64 `json:"listing_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body" binding:"required"`
}

// MarkReadRequest represents the explicit mark-read request body.
type MarkReadRequest struct {
	OtherUserID int64  `json:"other_user_id" binding:"required"`
	ListingID   *int64 `json:"listing_id"`
}

// ConversationResponse is one conversation list entry.
type ConversationResponse struct {
	ConversationKey string            `json:"conversation_key"`
	OtherUserID     int64             `json:"other_user_id"`
	OtherUsername   string            `json:"other_username"`
	ListingID       *int64            `json:"listing_id,omitempty"`
	LastMessage     *chat.MessageView `json:"last_message"`
	UnreadCount     int64             `json:"unread_count"`
}

// ThreadResponse is a page of a message thread.
type ThreadResponse struct {
	Messages []*chat.MessageView `json:"messages"`
	Total    int64               `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
}

// UnreadCountResponse carries the viewer's unread count.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// SendMessage handles sending a message over REST.
// POST /api/messages
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: chat.ErrCodeValidation})
		return
	}

	view, err := h.svc.Gateway().Send(c.Request.Context(), userID, chat.SendInput{
		RecipientID: req.RecipientID,
		ListingID:   req.ListingID,
		Subject:     req.Subject,
		Body:        req.Body,
	})
	if err != nil {
		h.respondChatError(c, err)
		return
	}

	metrics.MessagesSent.WithLabelValues("rest").Inc()
	c.JSON(http.StatusCreated, view)
}

// ListConversations handles the paginated conversation list.
// GET /api/conversations
func (h *MessageHandlers) ListConversations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	limit, offset := pagination(c)
	summaries, err := h.store.ListConversations(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to list conversations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: chat.ErrCodeInfrastructure})
		return
	}

	response := make([]ConversationResponse, 0, len(summaries))
	for _, s := range summaries {
		var last *chat.MessageView
		if s.LastMessage != nil {
			last = messageView(s.LastMessage)
		}
		response = append(response, ConversationResponse{
			ConversationKey: chat.ConversationKey(userID, s.OtherUserID, s.ListingID),
			OtherUserID:     s.OtherUserID,
			OtherUsername:   s.OtherUsername,
			ListingID:       s.ListingID,
			LastMessage:     last,
			UnreadCount:     s.UnreadCount,
		})
	}

	c.JSON(http.StatusOK, response)
}

// GetThread handles fetching a message thread. Fetching a thread marks it
// read as a side effect, through the same coordinator the socket path uses.
// GET /api/messages/thread/:userID
func (h *MessageHandlers) GetThread(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	otherID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil || otherID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id", Code: chat.ErrCodeValidation})
		return
	}

	listingID, ok := listingParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid listing id", Code: chat.ErrCodeValidation})
		return
	}

	limit, offset := pagination(c)
	messages, total, err := h.store.ListThread(c.Request.Context(), userID, otherID, listingID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Int64("other_id", otherID).Msg("failed to fetch thread")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: chat.ErrCodeInfrastructure})
		return
	}

	if err := h.svc.Receipts().MarkRead(c.Request.Context(), userID, otherID, listingID); err != nil {
		h.respondChatError(c, err)
		return
	}

	views := make([]*chat.MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, messageView(m))
	}

	c.JSON(http.StatusOK, ThreadResponse{
		Messages: views,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// MarkRead handles the explicit mark-as-read call.
// POST /api/messages/read
func (h *MessageHandlers) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid mark read request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: chat.ErrCodeValidation})
		return
	}

	if err := h.svc.Receipts().MarkRead(c.Request.Context(), userID, req.OtherUserID, req.ListingID); err != nil {
		h.respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UnreadCount handles fetching the viewer's unread count.
// GET /api/messages/unread-count
func (h *MessageHandlers) UnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	count, err := h.store.CountUnread(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to count unread")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: chat.ErrCodeInfrastructure})
		return
	}

	c.JSON(http.StatusOK, UnreadCountResponse{Count: count})
}

// respondChatError maps the messaging error taxonomy onto HTTP statuses.
func (h *MessageHandlers) respondChatError(c *gin.Context, err error) {
	ce, ok := chat.AsChatError(err)
	if !ok {
		h.log.Error().Err(err).Msg("unexpected messaging error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: chat.ErrCodeInfrastructure})
		return
	}

	status := http.StatusInternalServerError
	switch ce.Code {
	case chat.ErrCodeValidation, chat.ErrCodeSelfMessage:
		status = http.StatusBadRequest
	case chat.ErrCodeNotFound:
		status = http.StatusNotFound
	case chat.ErrCodeInfrastructure:
		h.log.Error().Err(err).Msg("message store failure")
	}
	c.JSON(status, ErrorResponse{Error: ce.Message, Code: ce.Code})
}

func messageView(m *store.Message) *chat.MessageView {
	return &chat.MessageView{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		ListingID:   m.ListingID,
		Subject:     m.Subject,
		Body:        m.Body,
		Read:        m.Read,
		CreatedAt:   m.CreatedAt,
	}
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func listingParam(c *gin.Context) (*int64, bool) {
	raw := c.Query("listing_id")
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, false
	}
	return &v, true
}
