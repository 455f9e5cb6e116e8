package grpc

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/dmitrijs2005/authcore/internal/api"
	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// ClaimsFromContext returns the access claims attached by the interceptor.
func ClaimsFromContext(ctx context.Context) (*models.AccessClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*models.AccessClaims)
	return c, ok
}

var accessTokenMethods = map[string]bool{
	api.WhoAmIMethod:    true,
	api.LogoutAllMethod: true,
}

func metadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if !accessTokenMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	accessToken := metadataValue(ctx, common.AccessTokenHeaderName)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.sessions.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, toStatus(err)
	}

	return handler(context.WithValue(ctx, claimsKey, claims), req)
}

// internalKeyInterceptor guards IssueSession: only the credential service,
// holding the shared internal key, may mint sessions.
func (s *GRPCServer) internalKeyInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if info.FullMethod != api.IssueSessionMethod {
		return handler(ctx, req)
	}

	key := metadataValue(ctx, common.InternalKeyHeaderName)
	if len(s.internalKey) == 0 || subtle.ConstantTimeCompare([]byte(key), s.internalKey) != 1 {
		return nil, status.Error(codes.PermissionDenied, "invalid internal key")
	}

	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{"method", info.FullMethod, "code", code.String(), "duration", time.Since(start).String()}
	if code == codes.Internal || code == codes.Unavailable {
		s.logger.Error(ctx, "grpc call", args...)
	} else {
		s.logger.Info(ctx, "grpc call", args...)
	}

	return resp, err
}
