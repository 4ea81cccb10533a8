package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bebusy.app/inbox/internal/model"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func (s *MessageStore) Insert(ctx context.Context, msg *model.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, group_id, sender_id, content, file_url, file_type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.ConversationID, msg.GroupID, msg.SenderID,
		msg.Content, msg.FileURL, msg.FileType, msg.IsRead, msg.CreatedAt)
	return err
}

func (s *MessageStore) GetByID(ctx context.Context, msgID int64) (*model.Message, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, conversation_id, group_id, sender_id, content, file_url, file_type, is_read, created_at
		FROM messages
		WHERE id = $1`, msgID)
	return scanMessage(row)
}

// MarkConversationRead flips every unread message sent to readerID in
// the conversation and returns the flipped rows.
func (s *MessageStore) MarkConversationRead(ctx context.Context, convID, readerID int64) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE messages
		SET is_read = true
		WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = false
		RETURNING id, conversation_id, group_id, sender_id, content, file_url, file_type, is_read, created_at`,
		convID, readerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

// MarkGroupRead advances the reader's last-read marker for the group
// and returns the messages from others it skipped past.
func (s *MessageStore) MarkGroupRead(ctx context.Context, groupID, readerID int64, at time.Time) ([]model.Message, error) {
	// The self-join snapshot keeps the pre-update marker visible so the
	// window covers exactly what the marker just skipped past.
	rows, err := s.pool.Query(ctx, `
		WITH marker AS (
			UPDATE group_members gm
			SET last_read_at = $3
			FROM group_members prev
			WHERE gm.group_id = $1 AND gm.user_id = $2
			  AND prev.group_id = gm.group_id AND prev.user_id = gm.user_id
			  AND gm.last_read_at < $3
			RETURNING prev.last_read_at AS prev
		)
		SELECT m.id, m.conversation_id, m.group_id, m.sender_id, m.content, m.file_url, m.file_type, m.is_read, m.created_at
		FROM messages m, marker
		WHERE m.group_id = $1
		  AND m.sender_id <> $2
		  AND m.created_at > marker.prev
		  AND m.created_at <= $3`,
		groupID, readerID, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

// Delete removes a message the owner sent. A missing row or a foreign
// owner both come back as ErrNotFound.
func (s *MessageStore) Delete(ctx context.Context, msgID, ownerID int64) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM messages WHERE id = $1 AND sender_id = $2`, msgID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MessageStore) ListForConversation(ctx context.Context, convID int64, limit int32) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, group_id, sender_id, content, file_url, file_type, is_read, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, convID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (s *MessageStore) ListForGroup(ctx context.Context, groupID int64, limit int32) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, group_id, sender_id, content, file_url, file_type, is_read, created_at
		FROM messages
		WHERE group_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func scanMessage(row pgx.Row) (*model.Message, error) {
	var msg model.Message
	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.GroupID, &msg.SenderID,
		&msg.Content, &msg.FileURL, &msg.FileType, &msg.IsRead, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func collectMessages(rows pgx.Rows) ([]model.Message, error) {
	var out []model.Message
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.GroupID, &msg.SenderID,
			&msg.Content, &msg.FileURL, &msg.FileType, &msg.IsRead, &msg.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}
