package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authcore/internal/api"
	"github.com/dmitrijs2005/authcore/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// tokenExpiredMessage is the status message the server uses for an access
// token that is well formed but past its expiry.
const tokenExpiredMessage = "token expired"

type GRPCClient struct {
	endpointURL string
	internalKey string
	dialOpts    []grpc.DialOption
	conn        *grpc.ClientConn
	client      api.SessionServiceClient

	mu     sync.Mutex
	tokens Tokens

	// refreshMu serialises rotations so two calls that both see an expired
	// access token never present the same refresh token twice.
	refreshMu sync.Mutex

	onRotate func(Tokens)
}

type Option func(*GRPCClient)

// WithDialOptions appends grpc dial options, e.g. a bufconn dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *GRPCClient) { c.dialOpts = append(c.dialOpts, opts...) }
}

// WithTokenObserver registers fn to be called with every new token pair,
// including the empty pair after logout.
func WithTokenObserver(fn func(Tokens)) Option {
	return func(c *GRPCClient) { c.onRotate = fn }
}

func NewSessionClient(endpointURL, internalKey string, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, internalKey: internalKey}
	for _, o := range opts {
		o(c)
	}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, s.dialOpts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewSessionServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Tokens() Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func (s *GRPCClient) SetTokens(t Tokens) {
	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()
}

func (s *GRPCClient) InternalKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.internalKey
}

func (s *GRPCClient) SetInternalKey(key string) {
	s.mu.Lock()
	s.internalKey = key
	s.mu.Unlock()
}

func (s *GRPCClient) storeTokens(t Tokens) {
	s.SetTokens(t)
	if s.onRotate != nil {
		s.onRotate(t)
	}
}

func withHeader(ctx context.Context, key, value string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(key, value)

	return metadata.NewOutgoingContext(ctx, md)
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == tokenExpiredMessage
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if method == api.IssueSessionMethod {
		ctx = withHeader(ctx, common.InternalKeyHeaderName, s.InternalKey())
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access := s.Tokens().AccessToken
	if access != "" {
		ctx = withHeader(ctx, common.AccessTokenHeaderName, access)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil || method == api.RefreshMethod || !isTokenExpired(err) {
		return err
	}

	if rerr := s.refreshAfterExpiry(ctx, access); rerr != nil {
		return rerr
	}

	// Tokens refreshed, retrying once with the new access token.
	ctx = withHeader(ctx, common.AccessTokenHeaderName, s.Tokens().AccessToken)
	return invoker(ctx, method, req, reply, cc, opts...)
}

// refreshAfterExpiry rotates unless another call already replaced the stale
// access token while this one waited.
func (s *GRPCClient) refreshAfterExpiry(ctx context.Context, staleAccess string) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.Tokens().AccessToken != staleAccess {
		return nil
	}
	return s.rotate(ctx)
}

// rotate must be called with refreshMu held.
func (s *GRPCClient) rotate(ctx context.Context) error {
	refresh := s.Tokens().RefreshToken
	if refresh == "" {
		return ErrNotLoggedIn
	}

	resp, err := s.client.Refresh(ctx, &api.RefreshRequest{RefreshToken: refresh})
	if err != nil {
		return err
	}

	s.storeTokens(Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	return nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	resp, err := s.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil

}

// IssueSession asks the server to open a session for an already
// authenticated user. It requires the internal key.
func (s *GRPCClient) IssueSession(ctx context.Context, userID, email, role string) error {

	req := &api.IssueSessionRequest{UserID: userID, Email: email, Role: role}

	resp, err := s.client.IssueSession(ctx, req)
	if err != nil {
		return s.mapError(err)
	}

	s.storeTokens(Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})

	return nil

}

// Refresh rotates the held refresh token unconditionally.
func (s *GRPCClient) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if err := s.rotate(ctx); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Logout revokes the held session and forgets the tokens.
func (s *GRPCClient) Logout(ctx context.Context) error {
	refresh := s.Tokens().RefreshToken
	if refresh == "" {
		return ErrNotLoggedIn
	}

	if _, err := s.client.Logout(ctx, &api.LogoutRequest{RefreshToken: refresh}); err != nil {
		return s.mapError(err)
	}

	s.storeTokens(Tokens{})
	return nil
}

// LogoutAll revokes every session of the current user, including this one.
func (s *GRPCClient) LogoutAll(ctx context.Context) (int64, error) {
	if s.Tokens().Empty() {
		return 0, ErrNotLoggedIn
	}

	resp, err := s.client.LogoutAll(ctx, &api.LogoutAllRequest{})
	if err != nil {
		return 0, s.mapError(err)
	}

	s.storeTokens(Tokens{})
	return resp.Revoked, nil
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (*api.WhoAmIResponse, error) {
	if s.Tokens().Empty() {
		return nil, ErrNotLoggedIn
	}

	resp, err := s.client.WhoAmI(ctx, &api.WhoAmIRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

// Verify checks an arbitrary access token without touching the session store.
func (s *GRPCClient) Verify(ctx context.Context, accessToken string) (*api.ClaimsResponse, error) {
	resp, err := s.client.VerifyAccessToken(ctx, &api.VerifyAccessTokenRequest{AccessToken: accessToken})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotLoggedIn) {
		return err
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.ResourceExhausted:
		return ErrRateLimited
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
