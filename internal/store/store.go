// Package store is the persistence layer. Each store wraps hand-written
// pgx queries over the inbox schema; callers get models, never rows.
package store

import (
	"errors"

	"bebusy.app/inbox/core/db"
)

// ErrNotFound is returned when a requested row does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("not found")

// Store bundles the typed stores over one connection pool.
type Store struct {
	Conversations *ConversationStore
	Groups        *GroupStore
	Messages      *MessageStore
	Notifications *NotificationStore
	Profiles      *ProfileStore
	Threads       *ThreadStore
}

func New(database *db.DB) *Store {
	pool := database.Pool()
	return &Store{
		Conversations: &ConversationStore{pool: pool},
		Groups:        &GroupStore{pool: pool},
		Messages:      &MessageStore{pool: pool},
		Notifications: &NotificationStore{pool: pool},
		Profiles:      &ProfileStore{pool: pool},
		Threads:       &ThreadStore{pool: pool},
	}
}
