package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bebusy.app/inbox/internal/model"
)

type GroupStore struct {
	pool *pgxpool.Pool
}

func (s *GroupStore) GetByID(ctx context.Context, groupID int64) (*model.Group, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT g.id, g.name, g.description, g.created_at,
		       (SELECT COUNT(*) FROM group_members gm WHERE gm.group_id = g.id)
		FROM groups g
		WHERE g.id = $1`, groupID)

	var g model.Group
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.MembersCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// MemberIDs lists the user ids of a group's members.
func (s *GroupStore) MemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM group_members WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		ids = append(ids, userID)
	}
	return ids, rows.Err()
}

// IsMember reports whether the user belongs to the group.
func (s *GroupStore) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2
		)`, groupID, userID)

	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
