package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bebusy.app/inbox/internal/model"
)

type ProfileStore struct {
	pool *pgxpool.Pool
}

func (s *ProfileStore) GetByID(ctx context.Context, userID int64) (*model.Profile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, full_name, avatar_url, created_at
		FROM profiles
		WHERE id = $1`, userID)

	var p model.Profile
	err := row.Scan(&p.ID, &p.Username, &p.FullName, &p.AvatarURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Search finds profiles whose username or full name matches the query,
// excluding the requesting user.
func (s *ProfileStore) Search(ctx context.Context, userID int64, query string, limit int32) ([]model.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, full_name, avatar_url, created_at
		FROM profiles
		WHERE id <> $1
		  AND (username ILIKE '%' || $2 || '%' OR full_name ILIKE '%' || $2 || '%')
		ORDER BY username
		LIMIT $3`, userID, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.FullName, &p.AvatarURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
