package model

import "time"

// NotificationType enumerates the notification kinds the inbox emits.
type NotificationType string

const (
	NotificationMessage      NotificationType = "message"
	NotificationGroupMessage NotificationType = "group_message"
)

// Notification is one row of a user's notification feed.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	ActorID   int64            `json:"actor_id"`
	ThreadID  int64            `json:"thread_id"`
	Kind      ThreadKind       `json:"thread_kind"`
	Preview   string           `json:"preview"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
