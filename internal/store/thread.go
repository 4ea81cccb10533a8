package store

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bebusy.app/inbox/internal/model"
)

// ThreadStore materializes the thread-summary snapshot a live inbox
// session starts from: every direct and group thread the user belongs
// to, with counterpart identity, latest message preview, and unread
// count, newest activity first.
type ThreadStore struct {
	pool *pgxpool.Pool
}

func (s *ThreadStore) LoadThreads(ctx context.Context, userID int64) ([]model.ThreadSummary, error) {
	direct, err := s.loadDirect(ctx, userID)
	if err != nil {
		return nil, err
	}
	groups, err := s.loadGroups(ctx, userID)
	if err != nil {
		return nil, err
	}

	threads := append(direct, groups...)
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].UpdatedAt.After(threads[j].UpdatedAt)
	})
	return threads, nil
}

func (s *ThreadStore) loadDirect(ctx context.Context, userID int64) ([]model.ThreadSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.updated_at,
		       p.id, p.username, p.full_name, p.avatar_url,
		       m.id, m.sender_id, m.created_at, m.content, m.file_type,
		       COALESCE(u.unread, 0)
		FROM conversations c
		JOIN profiles p
		  ON p.id = CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END
		LEFT JOIN LATERAL (
			SELECT id, sender_id, created_at, content, file_type
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC
			LIMIT 1
		) m ON true
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread
			FROM messages
			WHERE conversation_id = c.id AND sender_id <> $1 AND is_read = false
		) u ON true
		WHERE c.user1_id = $1 OR c.user2_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []model.ThreadSummary
	for rows.Next() {
		var (
			t        model.ThreadSummary
			username string
			fullName *string

			msgID     *int64
			senderID  *int64
			createdAt *time.Time
			content   *string
			fileType  *string
		)
		if err := rows.Scan(&t.ID, &t.UpdatedAt,
			&t.Counterpart.ID, &username, &fullName, &t.Counterpart.AvatarURL,
			&msgID, &senderID, &createdAt, &content, &fileType,
			&t.UnreadCount); err != nil {
			return nil, err
		}

		t.Kind = model.ThreadDirect
		t.Counterpart.DisplayName = displayName(username, fullName)
		t.LastMessage = snapshotFrom(msgID, senderID, createdAt, content, fileType)
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func (s *ThreadStore) loadGroups(ctx context.Context, userID int64) ([]model.ThreadSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT g.id, g.name, COALESCE(m.created_at, g.created_at),
		       m.id, m.sender_id, m.created_at, m.content, m.file_type,
		       COALESCE(u.unread, 0)
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id AND gm.user_id = $1
		LEFT JOIN LATERAL (
			SELECT id, sender_id, created_at, content, file_type
			FROM messages
			WHERE group_id = g.id
			ORDER BY created_at DESC
			LIMIT 1
		) m ON true
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread
			FROM messages
			WHERE group_id = g.id AND sender_id <> $1 AND created_at > gm.last_read_at
		) u ON true`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []model.ThreadSummary
	for rows.Next() {
		var (
			t    model.ThreadSummary
			name string

			msgID     *int64
			senderID  *int64
			createdAt *time.Time
			content   *string
			fileType  *string
		)
		if err := rows.Scan(&t.ID, &name, &t.UpdatedAt,
			&msgID, &senderID, &createdAt, &content, &fileType,
			&t.UnreadCount); err != nil {
			return nil, err
		}

		t.Kind = model.ThreadGroup
		t.Counterpart = model.Counterpart{ID: t.ID, DisplayName: name}
		t.LastMessage = snapshotFrom(msgID, senderID, createdAt, content, fileType)
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func displayName(username string, fullName *string) string {
	if fullName != nil && *fullName != "" {
		return *fullName
	}
	return username
}

func snapshotFrom(msgID, senderID *int64, createdAt *time.Time, content, fileType *string) *model.MessageSnapshot {
	if msgID == nil {
		return nil
	}
	snap := &model.MessageSnapshot{ID: *msgID, FileType: fileType}
	if senderID != nil {
		snap.SenderID = *senderID
	}
	if createdAt != nil {
		snap.CreatedAt = *createdAt
	}
	if content != nil {
		snap.Content = *content
	}
	return snap
}
