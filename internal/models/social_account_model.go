package models

import (
	"time"
)

type Platform string

const (
	PlatformFacebook  Platform = "Facebook"
	PlatformInstagram Platform = "Instagram"
	PlatformTikTok    Platform = "TikTok"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformFacebook, PlatformInstagram, PlatformTikTok:
		return true
	}
	return false
}

type SocialAccount struct {
	ID             int64      `db:"id" json:"id"`
	UserEmail      string     `db:"user_email" json:"user_email"`
	Platform       Platform   `db:"platform" json:"platform"`
	PlatformUserID string     `db:"platform_user_id" json:"platform_user_id"`
	AccessToken    string     `db:"access_token" json:"-"`
	ExpiresAt      *time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
