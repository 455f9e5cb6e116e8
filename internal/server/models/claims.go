package models

import "time"

// Identity is what the credential service vouches for at login.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// AccessClaims are the verified contents of an access token.
type AccessClaims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefreshClaims are the verified contents of a refresh envelope.
type RefreshClaims struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}
