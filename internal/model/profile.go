package model

import "time"

// Profile is the minimal user identity the inbox needs.
type Profile struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FullName  *string   `json:"full_name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName prefers the full name, falling back to the username.
func (p *Profile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Username
}

// Counterpart converts a profile into thread display identity.
func (p *Profile) Counterpart() Counterpart {
	return Counterpart{
		ID:          p.ID,
		DisplayName: p.DisplayName(),
		AvatarURL:   p.AvatarURL,
	}
}
