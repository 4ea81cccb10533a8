package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"bebusy.app/inbox/common/id"
	"bebusy.app/inbox/common/logger"
	"bebusy.app/inbox/internal/bus"
	"bebusy.app/inbox/internal/content"
	"bebusy.app/inbox/internal/inbox"
	"bebusy.app/inbox/internal/model"
	"bebusy.app/inbox/internal/queue"
)

var (
	ErrEmptyMessage = errors.New("message needs content or a file")
	ErrNotAMember   = errors.New("not a participant of this thread")
)

type MessageStore interface {
	Insert(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, msgID int64) (*model.Message, error)
	ListForConversation(ctx context.Context, convID int64, limit int32) ([]model.Message, error)
	ListForGroup(ctx context.Context, groupID int64, limit int32) ([]model.Message, error)
	MarkConversationRead(ctx context.Context, convID, readerID int64) ([]model.Message, error)
	MarkGroupRead(ctx context.Context, groupID, readerID int64, at time.Time) ([]model.Message, error)
	Delete(ctx context.Context, msgID, ownerID int64) error
}

type ConversationStore interface {
	GetOrCreate(ctx context.Context, userA, userB int64) (*model.Conversation, error)
	GetByID(ctx context.Context, convID int64) (*model.Conversation, error)
	Touch(ctx context.Context, convID int64, at time.Time) error
}

type GroupStore interface {
	GetByID(ctx context.Context, groupID int64) (*model.Group, error)
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// ChangePublisher broadcasts message row changes to live sessions.
type ChangePublisher interface {
	PublishChange(ctx context.Context, ev inbox.RawEvent) error
}

// IndexRemover drops a deleted message from the search index.
type IndexRemover interface {
	Remove(ctx context.Context, messageID int64) error
}

// SendRequest targets either a direct recipient or a group.
type SendRequest struct {
	SenderID    int64
	RecipientID *int64
	GroupID     *int64
	Content     string
	FileURL     *string
	FileType    *string
}

// MessageService owns the write path: validation, persistence, and the
// fan-out triggers that follow every accepted write.
type MessageService struct {
	messages      MessageStore
	conversations ConversationStore
	groups        GroupStore
	cleaner       *content.Cleaner
	producer      queue.Producer
	feed          ChangePublisher
	bus           *bus.Bus
	index         IndexRemover
	logger        *slog.Logger
}

func NewMessageService(
	messages MessageStore,
	conversations ConversationStore,
	groups GroupStore,
	cleaner *content.Cleaner,
	producer queue.Producer,
	feed ChangePublisher,
	b *bus.Bus,
	index IndexRemover,
	log *slog.Logger,
) *MessageService {
	if log == nil {
		log = slog.Default()
	}
	return &MessageService{
		messages:      messages,
		conversations: conversations,
		groups:        groups,
		cleaner:       cleaner,
		producer:      producer,
		feed:          feed,
		bus:           b,
		index:         index,
		logger:        log,
	}
}

// Send validates, persists, and fans out one message. The message is
// the source of truth once inserted; fan-out failures are logged and
// retried by the queue, never surfaced to the sender.
func (s *MessageService) Send(ctx context.Context, req SendRequest) (*model.Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:    logger.Ptr(req.SenderID),
		Component: "inbox.service.message",
	})

	text := req.Content
	if text != "" {
		if content.ContainsScriptLike(text) {
			s.logger.WarnContext(ctx, "script-like markup in message content")
		}
		cleaned, err := s.cleaner.Clean(text)
		if err != nil {
			if errors.Is(err, content.ErrEmptyContent) && req.FileURL != nil {
				cleaned = ""
			} else {
				return nil, err
			}
		}
		text = cleaned
	}
	if text == "" && req.FileURL == nil {
		return nil, ErrEmptyMessage
	}

	msg := &model.Message{
		ID:        id.New(),
		SenderID:  req.SenderID,
		Content:   text,
		FileURL:   req.FileURL,
		FileType:  req.FileType,
		CreatedAt: time.Now().UTC(),
	}

	switch {
	case req.GroupID != nil:
		ok, err := s.groups.IsMember(ctx, *req.GroupID, req.SenderID)
		if err != nil {
			return nil, fmt.Errorf("checking group membership: %w", err)
		}
		if !ok {
			return nil, ErrNotAMember
		}
		msg.GroupID = req.GroupID

	case req.RecipientID != nil:
		conv, err := s.conversations.GetOrCreate(ctx, req.SenderID, *req.RecipientID)
		if err != nil {
			return nil, fmt.Errorf("resolving conversation: %w", err)
		}
		msg.ConversationID = &conv.ID

	default:
		return nil, errors.New("send target missing")
	}

	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	if msg.ConversationID != nil {
		if err := s.conversations.Touch(ctx, *msg.ConversationID, msg.CreatedAt); err != nil {
			s.logger.ErrorContext(ctx, "failed to touch conversation", "conversation_id", *msg.ConversationID, "error", err)
		}
	}

	s.fanOut(ctx, msg)
	return msg, nil
}

func (s *MessageService) fanOut(ctx context.Context, msg *model.Message) {
	threadID, kind := msg.ThreadID()

	if err := s.producer.Enqueue(ctx, queue.FanoutMessage{
		TaskType:   queue.TaskTypeMessageFanout,
		MessageID:  msg.ID,
		ThreadID:   threadID,
		ThreadKind: kind,
		UserID:     msg.SenderID,
		TraceID:    currentTraceID(ctx),
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue fanout", "message_id", msg.ID, "error", err)
	}

	ev := rawEventFor(msg)
	if err := s.feed.PublishChange(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish change", "message_id", msg.ID, "error", err)
	}

	// Local sessions hear the insert immediately, without waiting for
	// the feed round trip. The dedup gate absorbs the echo.
	s.bus.Publish(bus.MessageInserted, ev)
}

// MarkThreadRead flips the caller's unread messages in a thread and
// announces the result.
func (s *MessageService) MarkThreadRead(ctx context.Context, userID, threadID int64, kind model.ThreadKind) (int, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:    logger.Ptr(userID),
		ThreadID:  logger.Ptr(threadID),
		Component: "inbox.service.message",
	})

	var (
		marked []model.Message
		err    error
	)
	switch kind {
	case model.ThreadDirect:
		conv, getErr := s.conversations.GetByID(ctx, threadID)
		if getErr != nil {
			return 0, getErr
		}
		if conv.User1ID != userID && conv.User2ID != userID {
			return 0, ErrNotAMember
		}
		marked, err = s.messages.MarkConversationRead(ctx, threadID, userID)

	case model.ThreadGroup:
		ok, memberErr := s.groups.IsMember(ctx, threadID, userID)
		if memberErr != nil {
			return 0, fmt.Errorf("checking group membership: %w", memberErr)
		}
		if !ok {
			return 0, ErrNotAMember
		}
		marked, err = s.messages.MarkGroupRead(ctx, threadID, userID, time.Now().UTC())

	default:
		return 0, fmt.Errorf("unknown thread kind %q", kind)
	}
	if err != nil {
		return 0, fmt.Errorf("marking thread read: %w", err)
	}
	count := len(marked)

	s.bus.Publish(bus.MessagesRead, inbox.ReadAck{
		ThreadID:         threadID,
		ThreadKind:       kind,
		CountDecremented: count,
	})

	// Sessions elsewhere reconcile read state from the feed, one update
	// per message the read swept over.
	for i := range marked {
		ev := readEventFor(&marked[i])
		if err := s.feed.PublishChange(ctx, ev); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish read update", "message_id", marked[i].ID, "error", err)
		}
	}

	if err := s.producer.Enqueue(ctx, queue.FanoutMessage{
		TaskType:   queue.TaskTypeThreadRead,
		ThreadID:   threadID,
		ThreadKind: kind,
		UserID:     userID,
		TraceID:    currentTraceID(ctx),
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue read fanout", "thread_id", threadID, "error", err)
	}

	return count, nil
}

// History lists a thread's recent messages, newest first. The caller
// must be a participant.
func (s *MessageService) History(ctx context.Context, userID, threadID int64, kind model.ThreadKind, limit int32) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	switch kind {
	case model.ThreadDirect:
		conv, err := s.conversations.GetByID(ctx, threadID)
		if err != nil {
			return nil, err
		}
		if conv.User1ID != userID && conv.User2ID != userID {
			return nil, ErrNotAMember
		}
		return s.messages.ListForConversation(ctx, threadID, limit)

	case model.ThreadGroup:
		ok, err := s.groups.IsMember(ctx, threadID, userID)
		if err != nil {
			return nil, fmt.Errorf("checking group membership: %w", err)
		}
		if !ok {
			return nil, ErrNotAMember
		}
		return s.messages.ListForGroup(ctx, threadID, limit)

	default:
		return nil, fmt.Errorf("unknown thread kind %q", kind)
	}
}

// GetGroup returns a group's display metadata for its members.
func (s *MessageService) GetGroup(ctx context.Context, userID, groupID int64) (*model.Group, error) {
	ok, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("checking group membership: %w", err)
	}
	if !ok {
		return nil, ErrNotAMember
	}
	return s.groups.GetByID(ctx, groupID)
}

// GetOrCreateConversation resolves the direct thread with another user.
func (s *MessageService) GetOrCreateConversation(ctx context.Context, userID, otherID int64) (*model.Conversation, error) {
	if userID == otherID {
		return nil, errors.New("cannot open a conversation with yourself")
	}
	return s.conversations.GetOrCreate(ctx, userID, otherID)
}

// Delete removes a message the caller sent, and drops it from the
// search index on a best-effort basis.
func (s *MessageService) Delete(ctx context.Context, msgID, ownerID int64) error {
	if err := s.messages.Delete(ctx, msgID, ownerID); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Remove(ctx, msgID); err != nil {
			s.logger.WarnContext(ctx, "failed to remove message from index", "message_id", msgID, "error", err)
		}
	}
	return nil
}

func rawEventFor(msg *model.Message) inbox.RawEvent {
	sender := msg.SenderID
	created := msg.CreatedAt
	isRead := msg.IsRead
	return inbox.RawEvent{
		Type: inbox.ChangeInsert,
		Record: &inbox.RawRecord{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			GroupID:        msg.GroupID,
			SenderID:       &sender,
			IsRead:         &isRead,
			CreatedAt:      &created,
			Content:        msg.Content,
			FileType:       msg.FileType,
		},
	}
}

// readEventFor announces that msg was read. Group reads advance a
// per-member marker rather than the row itself, so is_read is forced
// true here regardless of what the row says.
func readEventFor(msg *model.Message) inbox.RawEvent {
	ev := rawEventFor(msg)
	ev.Type = inbox.ChangeUpdate
	isRead := true
	ev.Record.IsRead = &isRead
	return ev
}

// currentTraceID lifts the active trace ID out of ctx so the worker can
// link its spans back to the originating request.
func currentTraceID(ctx context.Context) *string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return nil
	}
	traceID := spanCtx.TraceID().String()
	return &traceID
}
