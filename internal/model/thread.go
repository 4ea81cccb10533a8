package model

import (
	"strings"
	"time"
)

// ThreadKind distinguishes direct conversations from group chats.
type ThreadKind string

const (
	ThreadDirect ThreadKind = "direct"
	ThreadGroup  ThreadKind = "group"
)

// Counterpart is the display identity of the other side of a thread:
// the other participant's profile for direct threads, the group's
// metadata for group threads.
type Counterpart struct {
	ID          int64   `json:"id"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// MessageSnapshot is the last-message preview carried by a ThreadSummary.
type MessageSnapshot struct {
	ID        int64     `json:"id"`
	SenderID  int64     `json:"sender_id"`
	CreatedAt time.Time `json:"created_at"`
	Content   string    `json:"content"`
	FileType  *string   `json:"file_type,omitempty"`
}

// Preview returns the one-line text shown in the thread list. Attachments
// without a caption collapse to a kind marker.
func (m *MessageSnapshot) Preview() string {
	if m == nil {
		return "No messages yet"
	}
	if m.Content != "" {
		return m.Content
	}
	if m.FileType != nil {
		switch {
		case strings.HasPrefix(*m.FileType, "image/"):
			return "📷 Image"
		case strings.HasPrefix(*m.FileType, "video/"):
			return "🎥 Video"
		case *m.FileType == "application/pdf":
			return "📄 PDF"
		default:
			return "📎 File"
		}
	}
	return "No messages yet"
}

// ThreadSummary is one row of the inbox: a direct conversation or a
// group chat with its unread count and last-message preview.
//
// Invariants the reconciler maintains:
//   - UnreadCount >= 0 (clamped)
//   - UpdatedAt equals LastMessage.CreatedAt whenever LastMessage is set
//   - the collection holding summaries is sorted descending by UpdatedAt
//     after every mutation
type ThreadSummary struct {
	ID          int64            `json:"id"`
	Kind        ThreadKind       `json:"kind"`
	Counterpart Counterpart      `json:"counterpart"`
	LastMessage *MessageSnapshot `json:"last_message,omitempty"`
	UnreadCount int              `json:"unread_count"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
