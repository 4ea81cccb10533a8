package service

import (
	"context"
	"strings"

	"bebusy.app/inbox/internal/model"
)

type ProfileStore interface {
	GetByID(ctx context.Context, userID int64) (*model.Profile, error)
	Search(ctx context.Context, userID int64, query string, limit int32) ([]model.Profile, error)
}

// ProfileService backs the new-message recipient picker.
type ProfileService struct {
	profiles ProfileStore
}

func NewProfileService(profiles ProfileStore) *ProfileService {
	return &ProfileService{profiles: profiles}
}

func (s *ProfileService) Get(ctx context.Context, userID int64) (*model.Profile, error) {
	return s.profiles.GetByID(ctx, userID)
}

// Search finds profiles matching the query, excluding the requesting
// user. A blank query returns no results rather than the whole table.
func (s *ProfileService) Search(ctx context.Context, userID int64, query string, limit int32) ([]model.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.profiles.Search(ctx, userID, query, limit)
}
