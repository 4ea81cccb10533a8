package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bebusy.app/inbox/common/id"
	"bebusy.app/inbox/common/logger"
	"bebusy.app/inbox/internal/model"
	"bebusy.app/inbox/internal/queue"
	"bebusy.app/inbox/internal/store"
)

type MessageReader interface {
	GetByID(ctx context.Context, msgID int64) (*model.Message, error)
}

type ConversationReader interface {
	GetByID(ctx context.Context, convID int64) (*model.Conversation, error)
}

type GroupReader interface {
	MemberIDs(ctx context.Context, groupID int64) ([]int64, error)
}

type NotificationWriter interface {
	Insert(ctx context.Context, n *model.Notification) error
	MarkThreadRead(ctx context.Context, userID, threadID int64, kind model.ThreadKind) error
}

// Indexer mirrors the search index. Indexing is best-effort.
type Indexer interface {
	IndexMessage(ctx context.Context, msg *model.Message, recipientIDs []int64) error
}

// Fanout turns queue tasks into their side effects.
type Fanout struct {
	messages      MessageReader
	conversations ConversationReader
	groups        GroupReader
	notifications NotificationWriter
	index         Indexer
	logger        *slog.Logger
}

func NewFanout(
	messages MessageReader,
	conversations ConversationReader,
	groups GroupReader,
	notifications NotificationWriter,
	index Indexer,
	log *slog.Logger,
) *Fanout {
	if log == nil {
		log = slog.Default()
	}
	return &Fanout{
		messages:      messages,
		conversations: conversations,
		groups:        groups,
		notifications: notifications,
		index:         index,
		logger:        log,
	}
}

func (f *Fanout) Process(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ThreadID:  logger.Ptr(msg.ThreadID),
		Component: "inbox.worker.fanout",
	})

	switch msg.TaskType {
	case queue.TaskTypeMessageFanout:
		return f.fanOutMessage(ctx, msg)
	case queue.TaskTypeThreadRead:
		return f.clearNotifications(ctx, msg)
	default:
		return fmt.Errorf("unknown task_type %q", msg.TaskType)
	}
}

func (f *Fanout) fanOutMessage(ctx context.Context, task queue.Message) error {
	msg, err := f.messages.GetByID(ctx, *task.MessageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted before fan-out ran. Nothing to deliver.
			f.logger.InfoContext(ctx, "message gone before fanout", "message_id", *task.MessageID)
			return nil
		}
		return fmt.Errorf("loading message: %w", err)
	}

	recipients, err := f.recipients(ctx, msg)
	if err != nil {
		return err
	}

	notifType := model.NotificationMessage
	if task.ThreadKind == model.ThreadGroup {
		notifType = model.NotificationGroupMessage
	}
	preview := msg.Snapshot().Preview()
	now := time.Now().UTC()

	for _, userID := range recipients {
		n := &model.Notification{
			ID:        id.New(),
			UserID:    userID,
			Type:      notifType,
			ActorID:   msg.SenderID,
			ThreadID:  task.ThreadID,
			Kind:      task.ThreadKind,
			Preview:   preview,
			CreatedAt: now,
		}
		if err := f.notifications.Insert(ctx, n); err != nil {
			return fmt.Errorf("inserting notification for user %d: %w", userID, err)
		}
	}

	// The sender may search their own messages too.
	if f.index != nil {
		if err := f.index.IndexMessage(ctx, msg, append(recipients, msg.SenderID)); err != nil {
			f.logger.WarnContext(ctx, "failed to index message", "message_id", msg.ID, "error", err)
		}
	}

	f.logger.InfoContext(ctx, "message fanned out",
		"message_id", msg.ID,
		"recipients", len(recipients),
		"preview", logger.Truncate(preview, 64))
	return nil
}

func (f *Fanout) recipients(ctx context.Context, msg *model.Message) ([]int64, error) {
	switch {
	case msg.GroupID != nil:
		members, err := f.groups.MemberIDs(ctx, *msg.GroupID)
		if err != nil {
			return nil, fmt.Errorf("listing group members: %w", err)
		}
		recipients := make([]int64, 0, len(members))
		for _, userID := range members {
			if userID != msg.SenderID {
				recipients = append(recipients, userID)
			}
		}
		return recipients, nil

	case msg.ConversationID != nil:
		conv, err := f.conversations.GetByID(ctx, *msg.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("loading conversation: %w", err)
		}
		return []int64{conv.Other(msg.SenderID)}, nil

	default:
		return nil, fmt.Errorf("message %d has no thread", msg.ID)
	}
}

func (f *Fanout) clearNotifications(ctx context.Context, task queue.Message) error {
	if err := f.notifications.MarkThreadRead(ctx, task.UserID, task.ThreadID, task.ThreadKind); err != nil {
		return fmt.Errorf("clearing thread notifications: %w", err)
	}
	return nil
}
