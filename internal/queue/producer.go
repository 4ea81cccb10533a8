package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"bebusy.app/inbox/internal/model"
)

type FanoutMessage struct {
	TaskType   TaskType
	MessageID  int64
	ThreadID   int64
	ThreadKind model.ThreadKind
	UserID     int64
	TraceID    *string
	Attempt    int
}

type Producer interface {
	Enqueue(ctx context.Context, msg FanoutMessage) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, msg FanoutMessage) error {
	attempt := msg.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	taskType := msg.TaskType
	if taskType == "" {
		taskType = TaskTypeMessageFanout
	}

	fields := map[string]any{
		"task_type":   string(taskType),
		"thread_id":   msg.ThreadID,
		"thread_kind": string(msg.ThreadKind),
		"user_id":     msg.UserID,
		"attempt":     attempt,
	}

	if msg.MessageID != 0 {
		fields["message_id"] = msg.MessageID
	}

	if msg.TraceID != nil && *msg.TraceID != "" {
		fields["trace_id"] = *msg.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue fanout: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued fanout task", "task_type", taskType, "message_id", msg.MessageID, "thread_id", msg.ThreadID, "attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
