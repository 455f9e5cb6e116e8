package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/authcore/internal/api"
	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newTestServer(fake *fakeSessions) *GRPCServer {
	return NewGRPCServer("", nopLogger{}, fake, testInternalKey)
}

func TestInterceptor_OtherMethodsPassThrough(t *testing.T) {
	s := newTestServer(&fakeSessions{verifyErr: common.ErrInvalidToken})

	info := &grpc.UnaryServerInfo{FullMethod: api.PingMethod}
	handlerCalled := false
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled || resp != "ok" {
		t.Fatalf("handler not called or wrong resp: %v", resp)
	}

	if _, err := s.internalKeyInterceptor(context.Background(), nil, info, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInterceptor_AccessToken_SetsClaims(t *testing.T) {
	claims := &models.AccessClaims{UserID: "u1"}
	s := newTestServer(&fakeSessions{claims: claims})

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, "tok"))
	info := &grpc.UnaryServerInfo{FullMethod: api.WhoAmIMethod}

	var got *models.AccessClaims
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		got, _ = ClaimsFromContext(ctx)
		return nil, nil
	}

	if _, err := s.accessTokenInterceptor(ctx, nil, info, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.UserID != "u1" {
		t.Fatalf("claims not propagated: %+v", got)
	}
}

func TestInterceptor_AccessToken_Missing(t *testing.T) {
	s := newTestServer(&fakeSessions{})
	info := &grpc.UnaryServerInfo{FullMethod: api.LogoutAllMethod}

	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated, got %v", err)
	}
}

func TestInterceptor_InternalKey(t *testing.T) {
	s := newTestServer(&fakeSessions{})
	info := &grpc.UnaryServerInfo{FullMethod: api.IssueSessionMethod}
	h := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.InternalKeyHeaderName, testInternalKey))
	if _, err := s.internalKeyInterceptor(ctx, nil, info, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	empty := NewGRPCServer("", nopLogger{}, &fakeSessions{}, "")
	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.InternalKeyHeaderName, ""))
	if _, err := empty.internalKeyInterceptor(ctx, nil, info, h); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("empty configured key must deny, got %v", err)
	}
}

func TestInterceptor_InternalKeyOnlyGuardsIssueSession(t *testing.T) {
	s := newTestServer(&fakeSessions{})
	h := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	for _, method := range []string{api.VerifyAccessTokenMethod, api.RefreshMethod, api.PingMethod} {
		info := &grpc.UnaryServerInfo{FullMethod: method}
		resp, err := s.internalKeyInterceptor(context.Background(), nil, info, h)
		if err != nil || resp != "ok" {
			t.Fatalf("%s without internal key: resp=%v err=%v", method, resp, err)
		}
	}

	info := &grpc.UnaryServerInfo{FullMethod: api.IssueSessionMethod}
	if _, err := s.internalKeyInterceptor(context.Background(), nil, info, h); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("IssueSession without internal key must deny, got %v", err)
	}
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	s := newTestServer(&fakeSessions{})
	info := &grpc.UnaryServerInfo{FullMethod: api.RefreshMethod}
	want := status.Error(codes.Unavailable, "x")

	_, err := s.loggingInterceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
		msg  string
	}{
		{common.ErrTokenExpired, codes.Unauthenticated, MsgTokenExpired},
		{fmt.Errorf("wrap: %w", common.ErrTokenExpired), codes.Unauthenticated, MsgTokenExpired},
		{common.ErrInvalidToken, codes.Unauthenticated, MsgSessionExpired},
		{common.ErrorUnauthorized, codes.Unauthenticated, MsgSessionExpired},
		{fmt.Errorf("%w: db gone", common.ErrStoreUnavailable), codes.Unavailable, MsgUnavailable},
		{common.ErrRateLimited, codes.ResourceExhausted, MsgRateLimited},
		{errors.New("secret detail"), codes.Internal, MsgInternal},
	}

	for _, tt := range tests {
		st, _ := status.FromError(toStatus(tt.err))
		if st.Code() != tt.code || st.Message() != tt.msg {
			t.Fatalf("%v: got %v %q", tt.err, st.Code(), st.Message())
		}
	}

	if toStatus(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
