package models

import "time"

// User represents a listener with a linked Spotify account
type User struct {
	ID           int64
	Username     string
	Email        *string // Use pointer for nullable fields
	SpotifyID    *string
	AccessToken  *string    // Spotify Access Token
	RefreshToken *string    // Spotify Refresh Token
	TokenExpiry  *time.Time // Spotify Token Expiry
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
