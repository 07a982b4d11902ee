package entity

import (
	"time"
)

const (
	DefaultDisplayName = "Anonymous"
	DefaultAvatarURL   = "/default-avatar.jpg"
)

// User mirrors the identity provider's record so other users can read
// profile data without calling the provider.
type User struct {
	ID          string `json:"id" firestore:"id"`
	DisplayName string `json:"display_name" firestore:"displayName"`
	Email       string `json:"email,omitempty" firestore:"email"`
	PhotoURL    string `json:"photo_url,omitempty" firestore:"photoURL"`
	Provider    string `json:"provider,omitempty" firestore:"provider,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// PublicProfile is what other users get to see.
type PublicProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		DisplayName: u.NameOrDefault(),
		PhotoURL:    u.PhotoOrDefault(),
	}
}

func (u *User) NameOrDefault() string {
	if u == nil || u.DisplayName == "" {
		return DefaultDisplayName
	}
	return u.DisplayName
}

func (u *User) PhotoOrDefault() string {
	if u == nil || u.PhotoURL == "" {
		return DefaultAvatarURL
	}
	return u.PhotoURL
}
