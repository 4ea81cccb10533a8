package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bebusy.app/inbox/common/id"
	"bebusy.app/inbox/internal/model"
)

type ConversationStore struct {
	pool *pgxpool.Pool
}

// GetOrCreate returns the direct conversation between the two users,
// creating it if none exists yet. Participant order does not matter.
func (s *ConversationStore) GetOrCreate(ctx context.Context, userA, userB int64) (*model.Conversation, error) {
	conv, err := s.getByParticipants(ctx, userA, userB)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Stored pairs are ordered low-to-high so A->B and B->A land on the
	// same unique constraint.
	lo, hi := orderPair(userA, userB)

	now := time.Now().UTC()
	conv = &model.Conversation{
		ID:        id.New(),
		User1ID:   lo,
		User2ID:   hi,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO conversations (id, user1_id, user2_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		conv.ID, conv.User1ID, conv.User2ID, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		// A concurrent create between the same pair wins the unique
		// constraint race; read it back.
		if existing, getErr := s.getByParticipants(ctx, userA, userB); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return conv, nil
}

func orderPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

func (s *ConversationStore) GetByID(ctx context.Context, convID int64) (*model.Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user1_id, user2_id, created_at, updated_at
		FROM conversations
		WHERE id = $1`, convID)
	return scanConversation(row)
}

// Touch bumps the conversation's recency marker after a new message.
func (s *ConversationStore) Touch(ctx context.Context, convID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE conversations SET updated_at = $2 WHERE id = $1`, convID, at)
	return err
}

func (s *ConversationStore) getByParticipants(ctx context.Context, userA, userB int64) (*model.Conversation, error) {
	lo, hi := orderPair(userA, userB)
	row := s.pool.QueryRow(ctx, `
		SELECT id, user1_id, user2_id, created_at, updated_at
		FROM conversations
		WHERE user1_id = $1 AND user2_id = $2`, lo, hi)
	return scanConversation(row)
}

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var conv model.Conversation
	err := row.Scan(&conv.ID, &conv.User1ID, &conv.User2ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}
