package model

import "time"

// Message is a persisted chat message. Exactly one of ConversationID
// and GroupID is set, matching the target thread kind.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID *int64    `json:"conversation_id,omitempty"`
	GroupID        *int64    `json:"group_id,omitempty"`
	SenderID       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	FileURL        *string   `json:"file_url,omitempty"`
	FileType       *string   `json:"file_type,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// ThreadID returns the id and kind of the thread this message belongs to.
func (m *Message) ThreadID() (int64, ThreadKind) {
	if m.GroupID != nil {
		return *m.GroupID, ThreadGroup
	}
	if m.ConversationID != nil {
		return *m.ConversationID, ThreadDirect
	}
	return 0, ""
}

// Snapshot converts a message into the preview shape carried by a
// ThreadSummary.
func (m *Message) Snapshot() *MessageSnapshot {
	return &MessageSnapshot{
		ID:        m.ID,
		SenderID:  m.SenderID,
		CreatedAt: m.CreatedAt,
		Content:   m.Content,
		FileType:  m.FileType,
	}
}

// Conversation is a direct thread between two users.
type Conversation struct {
	ID        int64     `json:"id"`
	User1ID   int64     `json:"user1_id"`
	User2ID   int64     `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Group is a group chat's display metadata.
type Group struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	MembersCount int       `json:"members_count"`
	CreatedAt    time.Time `json:"created_at"`
}
