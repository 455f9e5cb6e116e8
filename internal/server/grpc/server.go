package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/authcore/internal/api"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/services"
	"google.golang.org/grpc"
)

// SessionService is the part of services.SessionService the transport uses.
type SessionService interface {
	IssuePair(ctx context.Context, id models.Identity) (*services.TokenPair, error)
	Rotate(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string)
	LogoutAll(ctx context.Context, userID string) (int64, error)
	VerifyAccessToken(token string) (*models.AccessClaims, error)
	ActiveSessions(ctx context.Context, userID string) (int, error)
}

type GRPCServer struct {
	api.UnimplementedSessionServiceServer
	address     string
	sessions    SessionService
	internalKey []byte
	logger      logging.Logger
}

func NewGRPCServer(address string, l logging.Logger, sessions SessionService, internalAPIKey string) *GRPCServer {
	return &GRPCServer{
		address:     address,
		logger:      l.With("module", "grpc_server"),
		sessions:    sessions,
		internalKey: []byte(internalAPIKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.loggingInterceptor,
		s.internalKeyInterceptor,
		s.accessTokenInterceptor,
	))
	api.RegisterSessionServiceServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis and stops gracefully when ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
