package models

import "time"

// Session is a refresh token record. Access tokens are short-lived and
// stateless; refresh tokens live here so they can be revoked on logout.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
