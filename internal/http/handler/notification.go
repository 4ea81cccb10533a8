package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bebusy.app/inbox/internal/http/dto"
	"bebusy.app/inbox/internal/http/middleware"
	"bebusy.app/inbox/internal/model"
	"bebusy.app/inbox/internal/store"
)

// NotificationReader mirrors service.NotificationService.
type NotificationReader interface {
	List(ctx context.Context, userID int64, limit int32) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, notifID, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
	Delete(ctx context.Context, notifID, userID int64) error
}

type NotificationHandler struct {
	notifications NotificationReader
}

func NewNotificationHandler(notifications NotificationReader) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	var limit int32 = 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil {
			limit = int32(n)
		}
	}

	notifications, err := h.notifications.List(ctx, userID, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list notifications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}

	unread, err := h.notifications.CountUnread(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count unread notifications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}

	out := make([]dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, dto.ToNotificationResponse(n))
	}

	c.JSON(http.StatusOK, dto.NotificationListResponse{
		Notifications: out,
		UnreadCount:   unread,
	})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	notifID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notifications.MarkRead(ctx, notifID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to mark notification read", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notification read"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	if err := h.notifications.MarkAllRead(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "failed to mark notifications read", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notifications read"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	notifID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notifications.Delete(ctx, notifID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to delete notification", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete notification"})
		return
	}

	c.Status(http.StatusNoContent)
}
