package models

import "time"

// Session is one durable refresh-session row. Its existence is the only
// proof that the refresh token carrying ID as jti is still usable.
type Session struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Identity returns the identity the session was issued for.
func (s *Session) Identity() Identity {
	return Identity{UserID: s.UserID, Email: s.Email, Role: s.Role}
}

// Expired reports whether the row must be treated as absent at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
