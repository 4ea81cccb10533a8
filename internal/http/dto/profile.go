package dto

import (
	"time"

	"bebusy.app/inbox/internal/model"
)

type ProfileResponse struct {
	ID        int64     `json:"id,string"`
	Username  string    `json:"username"`
	FullName  *string   `json:"full_name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func ToProfileResponse(p *model.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		Username:  p.Username,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		CreatedAt: p.CreatedAt,
	}
}

type ProfileSearchResponse struct {
	Profiles []ProfileResponse `json:"profiles"`
}
