package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"bebusy.app/inbox/internal/model"
)

type NotificationStore struct {
	pool *pgxpool.Pool
}

func (s *NotificationStore) Insert(ctx context.Context, n *model.Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, actor_id, thread_id, thread_kind, preview, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.UserID, n.Type, n.ActorID, n.ThreadID, n.Kind, n.Preview, n.IsRead, n.CreatedAt)
	return err
}

func (s *NotificationStore) ListForUser(ctx context.Context, userID int64, limit int32) ([]model.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, type, actor_id, thread_id, thread_kind, preview, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.ActorID,
			&n.ThreadID, &n.Kind, &n.Preview, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID int64) (int, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, notifID, userID int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET is_read = true
		WHERE id = $1 AND user_id = $2`, notifID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET is_read = true
		WHERE user_id = $1 AND is_read = false`, userID)
	return err
}

// MarkThreadRead clears the unread flag on a thread's notifications
// after the user opened it.
func (s *NotificationStore) MarkThreadRead(ctx context.Context, userID, threadID int64, kind model.ThreadKind) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET is_read = true
		WHERE user_id = $1 AND thread_id = $2 AND thread_kind = $3 AND is_read = false`,
		userID, threadID, kind)
	return err
}

func (s *NotificationStore) Delete(ctx context.Context, notifID, userID int64) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications WHERE id = $1 AND user_id = $2`, notifID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
