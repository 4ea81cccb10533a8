package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bebusy.app/inbox/internal/content"
	"bebusy.app/inbox/internal/http/dto"
	"bebusy.app/inbox/internal/http/middleware"
	"bebusy.app/inbox/internal/model"
	"bebusy.app/inbox/internal/search"
	"bebusy.app/inbox/internal/service"
	"bebusy.app/inbox/internal/store"
)

// MessageSender mirrors service.MessageService.
type MessageSender interface {
	Send(ctx context.Context, req service.SendRequest) (*model.Message, error)
	Delete(ctx context.Context, msgID, ownerID int64) error
	History(ctx context.Context, userID, threadID int64, kind model.ThreadKind, limit int32) ([]model.Message, error)
	GetGroup(ctx context.Context, userID, groupID int64) (*model.Group, error)
	GetOrCreateConversation(ctx context.Context, userID, otherID int64) (*model.Conversation, error)
}

// Searcher mirrors the search index query path.
type Searcher interface {
	Query(ctx context.Context, userID int64, query string, limit int) ([]search.Hit, error)
}

type MessageHandler struct {
	messages MessageSender
	searcher Searcher
}

func NewMessageHandler(messages MessageSender, searcher Searcher) *MessageHandler {
	return &MessageHandler{messages: messages, searcher: searcher}
}

func (h *MessageHandler) Send(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.Send(ctx, service.SendRequest{
		SenderID:    userID,
		RecipientID: req.RecipientID,
		GroupID:     req.GroupID,
		Content:     req.Content,
		FileURL:     req.FileURL,
		FileType:    req.FileType,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage),
			errors.Is(err, content.ErrEmptyContent),
			errors.Is(err, content.ErrContentTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNotAMember):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this group"})
		default:
			slog.ErrorContext(ctx, "failed to send message", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.ToMessageResponse(msg))
}

func (h *MessageHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	msgID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if err := h.messages.Delete(ctx, msgID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to delete message", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}

	c.Status(http.StatusNoContent)
}

// History returns a thread's recent messages, newest first.
func (h *MessageHandler) History(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	threadID, err := strconv.ParseInt(c.Query("thread_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread_id"})
		return
	}
	kind := model.ThreadKind(c.Query("thread_kind"))
	if kind != model.ThreadDirect && kind != model.ThreadGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "thread_kind must be direct or group"})
		return
	}

	var limit int32 = 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil {
			limit = int32(n)
		}
	}

	messages, err := h.messages.History(ctx, userID, threadID, kind, limit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAMember):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this thread"})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		default:
			slog.ErrorContext(ctx, "failed to load messages", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToMessageListResponse(messages))
}

// GetGroup returns a group's display metadata for the chat header.
func (h *MessageHandler) GetGroup(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	group, err := h.messages.GetGroup(ctx, userID, groupID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAMember):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this group"})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		default:
			slog.ErrorContext(ctx, "failed to get group", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get group"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToGroupResponse(group))
}

// OpenConversation resolves the direct thread with another user,
// creating it on first contact.
func (h *MessageHandler) OpenConversation(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	var req dto.OpenConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.messages.GetOrCreateConversation(ctx, userID, req.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open conversation", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open conversation"})
		return
	}

	c.JSON(http.StatusOK, dto.ToConversationResponse(conv))
}

func (h *MessageHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	hits, err := h.searcher.Query(ctx, userID, query, limit)
	if err != nil {
		slog.ErrorContext(ctx, "message search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, dto.ToSearchResponse(query, hits))
}
