package dto

import (
	"time"

	"bebusy.app/inbox/internal/inbox"
	"bebusy.app/inbox/internal/model"
	"bebusy.app/inbox/internal/search"
)

type SendMessageRequest struct {
	RecipientID *int64  `json:"recipient_id,string,omitempty"`
	GroupID     *int64  `json:"group_id,string,omitempty"`
	Content     string  `json:"content" binding:"max=10000"`
	FileURL     *string `json:"file_url,omitempty" binding:"omitempty,url,max=2048"`
	FileType    *string `json:"file_type,omitempty" binding:"omitempty,max=100"`
}

type MessageResponse struct {
	ID             int64     `json:"id,string"`
	ConversationID *int64    `json:"conversation_id,string,omitempty"`
	GroupID        *int64    `json:"group_id,string,omitempty"`
	SenderID       int64     `json:"sender_id,string"`
	Content        string    `json:"content"`
	FileURL        *string   `json:"file_url,omitempty"`
	FileType       *string   `json:"file_type,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

func ToMessageResponse(m *model.Message) *MessageResponse {
	return &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		GroupID:        m.GroupID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		FileURL:        m.FileURL,
		FileType:       m.FileType,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
}

func ToMessageListResponse(messages []model.Message) MessageListResponse {
	out := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, *ToMessageResponse(&messages[i]))
	}
	return MessageListResponse{Messages: out}
}

type GroupResponse struct {
	ID           int64     `json:"id,string"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	MembersCount int       `json:"members_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToGroupResponse(g *model.Group) GroupResponse {
	return GroupResponse{
		ID:           g.ID,
		Name:         g.Name,
		Description:  g.Description,
		MembersCount: g.MembersCount,
		CreatedAt:    g.CreatedAt,
	}
}

type CounterpartResponse struct {
	ID          int64   `json:"id,string"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

type LastMessageResponse struct {
	ID        int64     `json:"id,string"`
	SenderID  int64     `json:"sender_id,string"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"created_at"`
}

type ThreadResponse struct {
	ID          int64                `json:"id,string"`
	Kind        model.ThreadKind     `json:"kind"`
	Counterpart CounterpartResponse  `json:"counterpart"`
	LastMessage *LastMessageResponse `json:"last_message,omitempty"`
	UnreadCount int                  `json:"unread_count"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func ToThreadResponse(t model.ThreadSummary) ThreadResponse {
	resp := ThreadResponse{
		ID:   t.ID,
		Kind: t.Kind,
		Counterpart: CounterpartResponse{
			ID:          t.Counterpart.ID,
			DisplayName: t.Counterpart.DisplayName,
			AvatarURL:   t.Counterpart.AvatarURL,
		},
		UnreadCount: t.UnreadCount,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.LastMessage != nil {
		resp.LastMessage = &LastMessageResponse{
			ID:        t.LastMessage.ID,
			SenderID:  t.LastMessage.SenderID,
			Preview:   t.LastMessage.Preview(),
			CreatedAt: t.LastMessage.CreatedAt,
		}
	}
	return resp
}

type ThreadListResponse struct {
	Tab     inbox.Tab        `json:"tab"`
	Threads []ThreadResponse `json:"threads"`
	Empty   bool             `json:"empty"`
}

func ToThreadListResponse(view inbox.View) ThreadListResponse {
	threads := make([]ThreadResponse, 0, len(view.Threads))
	for _, t := range view.Threads {
		threads = append(threads, ToThreadResponse(t))
	}
	return ThreadListResponse{
		Tab:     view.Tab,
		Threads: threads,
		Empty:   view.Empty,
	}
}

type MarkReadRequest struct {
	ThreadID   int64            `json:"thread_id,string" binding:"required"`
	ThreadKind model.ThreadKind `json:"thread_kind" binding:"required,oneof=direct group"`
}

type MarkReadResponse struct {
	MarkedRead int `json:"marked_read"`
}

type OpenConversationRequest struct {
	UserID int64 `json:"user_id,string" binding:"required"`
}

type ConversationResponse struct {
	ID        int64     `json:"id,string"`
	User1ID   int64     `json:"user1_id,string"`
	User2ID   int64     `json:"user2_id,string"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToConversationResponse(c *model.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:        c.ID,
		User1ID:   c.User1ID,
		User2ID:   c.User2ID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type NotificationResponse struct {
	ID         int64                  `json:"id,string"`
	Type       model.NotificationType `json:"type"`
	ActorID    int64                  `json:"actor_id,string"`
	ThreadID   int64                  `json:"thread_id,string"`
	ThreadKind model.ThreadKind       `json:"thread_kind"`
	Preview    string                 `json:"preview"`
	IsRead     bool                   `json:"is_read"`
	CreatedAt  time.Time              `json:"created_at"`
}

func ToNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		Type:       n.Type,
		ActorID:    n.ActorID,
		ThreadID:   n.ThreadID,
		ThreadKind: n.Kind,
		Preview:    n.Preview,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
	}
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int                    `json:"unread_count"`
}

type SearchHitResponse struct {
	MessageID  int64            `json:"message_id,string"`
	ThreadID   int64            `json:"thread_id,string"`
	ThreadKind model.ThreadKind `json:"thread_kind"`
	SenderID   int64            `json:"sender_id,string"`
	Content    string           `json:"content"`
	CreatedAt  time.Time        `json:"created_at"`
}

type SearchResponse struct {
	Query string              `json:"query"`
	Hits  []SearchHitResponse `json:"hits"`
}

func ToSearchResponse(query string, hits []search.Hit) SearchResponse {
	out := make([]SearchHitResponse, 0, len(hits))
	for _, h := range hits {
		out = append(out, SearchHitResponse{
			MessageID:  h.MessageID,
			ThreadID:   h.ThreadID,
			ThreadKind: h.ThreadKind,
			SenderID:   h.SenderID,
			Content:    h.Content,
			CreatedAt:  h.CreatedAt,
		})
	}
	return SearchResponse{Query: query, Hits: out}
}
