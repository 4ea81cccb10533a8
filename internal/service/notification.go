package service

import (
	"context"

	"bebusy.app/inbox/internal/model"
)

type NotificationStore interface {
	ListForUser(ctx context.Context, userID int64, limit int32) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, notifID, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
	Delete(ctx context.Context, notifID, userID int64) error
}

// NotificationService exposes a user's notification feed.
type NotificationService struct {
	notifications NotificationStore
}

func NewNotificationService(notifications NotificationStore) *NotificationService {
	return &NotificationService{notifications: notifications}
}

func (s *NotificationService) List(ctx context.Context, userID int64, limit int32) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notifications.ListForUser(ctx, userID, limit)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID int64) (int, error) {
	return s.notifications.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, notifID, userID int64) error {
	return s.notifications.MarkRead(ctx, notifID, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) error {
	return s.notifications.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, notifID, userID int64) error {
	return s.notifications.Delete(ctx, notifID, userID)
}
