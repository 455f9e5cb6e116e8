package api

import "time"

type IssueSessionRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type TokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutResponse struct{}

type VerifyAccessTokenRequest struct {
	AccessToken string `json:"access_token"`
}

type ClaimsResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type WhoAmIRequest struct{}

type WhoAmIResponse struct {
	Claims         ClaimsResponse `json:"claims"`
	ActiveSessions int            `json:"active_sessions"`
}

type LogoutAllRequest struct{}

type LogoutAllResponse struct {
	Revoked int64 `json:"revoked"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
