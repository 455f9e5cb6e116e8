package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "authcore.v1.SessionService"

const (
	IssueSessionMethod      = "/" + ServiceName + "/IssueSession"
	RefreshMethod           = "/" + ServiceName + "/Refresh"
	LogoutMethod            = "/" + ServiceName + "/Logout"
	VerifyAccessTokenMethod = "/" + ServiceName + "/VerifyAccessToken"
	WhoAmIMethod            = "/" + ServiceName + "/WhoAmI"
	LogoutAllMethod         = "/" + ServiceName + "/LogoutAll"
	PingMethod              = "/" + ServiceName + "/Ping"
)

// SessionServiceServer is implemented by the server transport.
type SessionServiceServer interface {
	IssueSession(context.Context, *IssueSessionRequest) (*TokenPairResponse, error)
	Refresh(context.Context, *RefreshRequest) (*TokenPairResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	VerifyAccessToken(context.Context, *VerifyAccessTokenRequest) (*ClaimsResponse, error)
	WhoAmI(context.Context, *WhoAmIRequest) (*WhoAmIResponse, error)
	LogoutAll(context.Context, *LogoutAllRequest) (*LogoutAllResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// UnimplementedSessionServiceServer can be embedded for forward compatibility.
type UnimplementedSessionServiceServer struct{}

func (UnimplementedSessionServiceServer) IssueSession(context.Context, *IssueSessionRequest) (*TokenPairResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method IssueSession not implemented")
}
func (UnimplementedSessionServiceServer) Refresh(context.Context, *RefreshRequest) (*TokenPairResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
}
func (UnimplementedSessionServiceServer) Logout(context.Context, *LogoutRequest) (*LogoutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
}
func (UnimplementedSessionServiceServer) VerifyAccessToken(context.Context, *VerifyAccessTokenRequest) (*ClaimsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyAccessToken not implemented")
}
func (UnimplementedSessionServiceServer) WhoAmI(context.Context, *WhoAmIRequest) (*WhoAmIResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method WhoAmI not implemented")
}
func (UnimplementedSessionServiceServer) LogoutAll(context.Context, *LogoutAllRequest) (*LogoutAllResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LogoutAll not implemented")
}
func (UnimplementedSessionServiceServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

func unaryHandler[Req, Resp any](fullMethod string, call func(SessionServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SessionServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SessionServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes authcore.v1.SessionService for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IssueSession", Handler: unaryHandler(IssueSessionMethod, SessionServiceServer.IssueSession)},
		{MethodName: "Refresh", Handler: unaryHandler(RefreshMethod, SessionServiceServer.Refresh)},
		{MethodName: "Logout", Handler: unaryHandler(LogoutMethod, SessionServiceServer.Logout)},
		{MethodName: "VerifyAccessToken", Handler: unaryHandler(VerifyAccessTokenMethod, SessionServiceServer.VerifyAccessToken)},
		{MethodName: "WhoAmI", Handler: unaryHandler(WhoAmIMethod, SessionServiceServer.WhoAmI)},
		{MethodName: "LogoutAll", Handler: unaryHandler(LogoutAllMethod, SessionServiceServer.LogoutAll)},
		{MethodName: "Ping", Handler: unaryHandler(PingMethod, SessionServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authcore/v1/session.json",
}

func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// SessionServiceClient is the client API for authcore.v1.SessionService.
type SessionServiceClient interface {
	IssueSession(ctx context.Context, in *IssueSessionRequest, opts ...grpc.CallOption) (*TokenPairResponse, error)
	Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*TokenPairResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
	VerifyAccessToken(ctx context.Context, in *VerifyAccessTokenRequest, opts ...grpc.CallOption) (*ClaimsResponse, error)
	WhoAmI(ctx context.Context, in *WhoAmIRequest, opts ...grpc.CallOption) (*WhoAmIResponse, error)
	LogoutAll(ctx context.Context, in *LogoutAllRequest, opts ...grpc.CallOption) (*LogoutAllResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
}

type sessionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionServiceClient(cc grpc.ClientConnInterface) SessionServiceClient {
	return &sessionServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionServiceClient) IssueSession(ctx context.Context, in *IssueSessionRequest, opts ...grpc.CallOption) (*TokenPairResponse, error) {
	return invoke[TokenPairResponse](ctx, c.cc, IssueSessionMethod, in, opts)
}

func (c *sessionServiceClient) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*TokenPairResponse, error) {
	return invoke[TokenPairResponse](ctx, c.cc, RefreshMethod, in, opts)
}

func (c *sessionServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, LogoutMethod, in, opts)
}

func (c *sessionServiceClient) VerifyAccessToken(ctx context.Context, in *VerifyAccessTokenRequest, opts ...grpc.CallOption) (*ClaimsResponse, error) {
	return invoke[ClaimsResponse](ctx, c.cc, VerifyAccessTokenMethod, in, opts)
}

func (c *sessionServiceClient) WhoAmI(ctx context.Context, in *WhoAmIRequest, opts ...grpc.CallOption) (*WhoAmIResponse, error) {
	return invoke[WhoAmIResponse](ctx, c.cc, WhoAmIMethod, in, opts)
}

func (c *sessionServiceClient) LogoutAll(ctx context.Context, in *LogoutAllRequest, opts ...grpc.CallOption) (*LogoutAllResponse, error) {
	return invoke[LogoutAllResponse](ctx, c.cc, LogoutAllMethod, in, opts)
}

func (c *sessionServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, PingMethod, in, opts)
}
