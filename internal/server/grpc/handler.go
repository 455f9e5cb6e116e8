package grpc

import (
	"context"

	"github.com/dmitrijs2005/authcore/internal/api"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func pairResponse(p *services.TokenPair) *api.TokenPairResponse {
	return &api.TokenPairResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

func claimsResponse(c *models.AccessClaims) api.ClaimsResponse {
	return api.ClaimsResponse{
		UserID:    c.UserID,
		Email:     c.Email,
		Role:      c.Role,
		IssuedAt:  c.IssuedAt,
		ExpiresAt: c.ExpiresAt,
	}
}

func (s *GRPCServer) IssueSession(ctx context.Context, req *api.IssueSessionRequest) (*api.TokenPairResponse, error) {
	if req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}

	pair, err := s.sessions.IssuePair(ctx, models.Identity{UserID: req.UserID, Email: req.Email, Role: req.Role})
	if err != nil {
		s.logger.Error(ctx, "issue session failed", "user_id", req.UserID, "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "session issued", "user_id", req.UserID)
	return pairResponse(pair), nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *api.RefreshRequest) (*api.TokenPairResponse, error) {
	pair, err := s.sessions.Rotate(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return pairResponse(pair), nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *api.LogoutRequest) (*api.LogoutResponse, error) {
	s.sessions.Logout(ctx, req.RefreshToken)
	return &api.LogoutResponse{}, nil
}

func (s *GRPCServer) VerifyAccessToken(ctx context.Context, req *api.VerifyAccessTokenRequest) (*api.ClaimsResponse, error) {
	claims, err := s.sessions.VerifyAccessToken(req.AccessToken)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := claimsResponse(claims)
	return &resp, nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *api.WhoAmIRequest) (*api.WhoAmIResponse, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	n, err := s.sessions.ActiveSessions(ctx, claims.UserID)
	if err != nil {
		return nil, toStatus(err)
	}

	return &api.WhoAmIResponse{Claims: claimsResponse(claims), ActiveSessions: n}, nil
}

func (s *GRPCServer) LogoutAll(ctx context.Context, _ *api.LogoutAllRequest) (*api.LogoutAllResponse, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	n, err := s.sessions.LogoutAll(ctx, claims.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.LogoutAllResponse{Revoked: n}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}
