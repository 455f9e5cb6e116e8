package client

import (
	"context"

	"github.com/dmitrijs2005/authcore/internal/api"
)

// Tokens is the pair a client holds between calls.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	IssueSession(ctx context.Context, userID, email, role string) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) (int64, error)
	WhoAmI(ctx context.Context) (*api.WhoAmIResponse, error)
	Verify(ctx context.Context, accessToken string) (*api.ClaimsResponse, error)
	Tokens() Tokens
	SetTokens(t Tokens)
	InternalKey() string
	SetInternalKey(key string)
}
