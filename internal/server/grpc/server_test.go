package grpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authcore/internal/api"
	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakeSessions struct {
	mu sync.Mutex

	pair      *services.TokenPair
	issueErr  error
	rotateErr error
	claims    *models.AccessClaims
	verifyErr error
	revoked   int64
	revokeErr error
	active    int
	activeErr error

	lastIdentity models.Identity
	lastRefresh  string
	logouts      []string
	logoutAllFor string
}

func (f *fakeSessions) IssuePair(_ context.Context, id models.Identity) (*services.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastIdentity = id
	return f.pair, f.issueErr
}

func (f *fakeSessions) Rotate(_ context.Context, refresh string) (*services.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRefresh = refresh
	if f.rotateErr != nil {
		return nil, f.rotateErr
	}
	return f.pair, nil
}

func (f *fakeSessions) Logout(_ context.Context, refresh string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, refresh)
}

func (f *fakeSessions) LogoutAll(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutAllFor = userID
	return f.revoked, f.revokeErr
}

func (f *fakeSessions) VerifyAccessToken(token string) (*models.AccessClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.claims, nil
}

func (f *fakeSessions) ActiveSessions(context.Context, string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.activeErr
}

const testInternalKey = "internal-key"

func newBufconnClient(t *testing.T, fake *fakeSessions) api.SessionServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer("bufnet", nopLogger{}, fake, testInternalKey)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx, lis)
		close(done)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})

	return api.NewSessionServiceClient(conn)
}

func withAccessToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, token)
}

func withInternalKey(ctx context.Context, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, common.InternalKeyHeaderName, key)
}

var testPair = &services.TokenPair{
	AccessToken:      "access-1",
	RefreshToken:     "refresh-1",
	AccessExpiresAt:  time.Date(2025, 3, 1, 12, 15, 0, 0, time.UTC),
	RefreshExpiresAt: time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC),
}

func TestIssueSession_RequiresInternalKey(t *testing.T) {
	fake := &fakeSessions{pair: testPair}
	client := newBufconnClient(t, fake)
	req := &api.IssueSessionRequest{UserID: "u1", Email: "u1@example.com", Role: "admin"}

	_, err := client.IssueSession(context.Background(), req)
	require.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = client.IssueSession(withInternalKey(context.Background(), "wrong"), req)
	require.Equal(t, codes.PermissionDenied, status.Code(err))

	resp, err := client.IssueSession(withInternalKey(context.Background(), testInternalKey), req)
	require.NoError(t, err)
	assert.Equal(t, "access-1", resp.AccessToken)
	assert.Equal(t, "refresh-1", resp.RefreshToken)
	assert.True(t, resp.RefreshExpiresAt.Equal(testPair.RefreshExpiresAt))
	assert.Equal(t, models.Identity{UserID: "u1", Email: "u1@example.com", Role: "admin"}, fake.lastIdentity)
}

func TestIssueSession_Validation(t *testing.T) {
	client := newBufconnClient(t, &fakeSessions{pair: testPair})

	_, err := client.IssueSession(withInternalKey(context.Background(), testInternalKey), &api.IssueSessionRequest{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRefresh_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{"unauthorized", common.ErrorUnauthorized, codes.Unauthenticated, MsgSessionExpired},
		{"store down", common.ErrStoreUnavailable, codes.Unavailable, MsgUnavailable},
		{"rate limited", common.ErrRateLimited, codes.ResourceExhausted, MsgRateLimited},
		{"internal", common.ErrorInternal, codes.Internal, MsgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newBufconnClient(t, &fakeSessions{rotateErr: tt.err})
			_, err := client.Refresh(context.Background(), &api.RefreshRequest{RefreshToken: "r"})
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.msg, st.Message())
		})
	}
}

func TestRefresh_Success(t *testing.T) {
	fake := &fakeSessions{pair: testPair}
	client := newBufconnClient(t, fake)

	resp, err := client.Refresh(context.Background(), &api.RefreshRequest{RefreshToken: "old"})
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", resp.RefreshToken)
	assert.Equal(t, "old", fake.lastRefresh)
}

func TestLogout_AlwaysOK(t *testing.T) {
	fake := &fakeSessions{}
	client := newBufconnClient(t, fake)

	_, err := client.Logout(context.Background(), &api.LogoutRequest{RefreshToken: "r1"})
	require.NoError(t, err)
	_, err = client.Logout(context.Background(), &api.LogoutRequest{})
	require.NoError(t, err)

	assert.Equal(t, []string{"r1", ""}, fake.logouts)
}

func TestVerifyAccessToken(t *testing.T) {
	claims := &models.AccessClaims{UserID: "u1", Email: "e", Role: "r"}
	client := newBufconnClient(t, &fakeSessions{claims: claims})

	resp, err := client.VerifyAccessToken(context.Background(), &api.VerifyAccessTokenRequest{AccessToken: "a"})
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.UserID)

	expired := newBufconnClient(t, &fakeSessions{verifyErr: common.ErrTokenExpired})
	_, err = expired.VerifyAccessToken(context.Background(), &api.VerifyAccessTokenRequest{AccessToken: "a"})
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, MsgTokenExpired, st.Message())
}

func TestWhoAmI_NeedsAccessToken(t *testing.T) {
	claims := &models.AccessClaims{UserID: "u1"}
	client := newBufconnClient(t, &fakeSessions{claims: claims, active: 3})

	_, err := client.WhoAmI(context.Background(), &api.WhoAmIRequest{})
	require.Equal(t, codes.Unauthenticated, status.Code(err))

	resp, err := client.WhoAmI(withAccessToken(context.Background(), "a"), &api.WhoAmIRequest{})
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.Claims.UserID)
	assert.Equal(t, 3, resp.ActiveSessions)
}

func TestWhoAmI_ExpiredToken(t *testing.T) {
	client := newBufconnClient(t, &fakeSessions{verifyErr: common.ErrTokenExpired})

	_, err := client.WhoAmI(withAccessToken(context.Background(), "a"), &api.WhoAmIRequest{})
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, MsgTokenExpired, st.Message())
}

func TestLogoutAll(t *testing.T) {
	fake := &fakeSessions{claims: &models.AccessClaims{UserID: "u9"}, revoked: 4}
	client := newBufconnClient(t, fake)

	resp, err := client.LogoutAll(withAccessToken(context.Background(), "a"), &api.LogoutAllRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, resp.Revoked)
	assert.Equal(t, "u9", fake.logoutAllFor)
}

func TestPing(t *testing.T) {
	client := newBufconnClient(t, &fakeSessions{})

	resp, err := client.Ping(context.Background(), &api.PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", nopLogger{}, &fakeSessions{}, testInternalKey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", nopLogger{}, &fakeSessions{}, testInternalKey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
