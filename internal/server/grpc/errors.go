package grpc

import (
	"errors"

	"github.com/dmitrijs2005/authcore/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Status messages clients may rely on.
const (
	MsgTokenExpired   = "token expired"
	MsgSessionExpired = "session expired, please log in"
	MsgUnavailable    = "session store unavailable, retry later"
	MsgRateLimited    = "too many refresh attempts"
	MsgInternal       = "internal error"
)

// toStatus maps service errors to gRPC statuses. Internal causes are never
// echoed to the caller.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, MsgTokenExpired)
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, MsgSessionExpired)
	case errors.Is(err, common.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, MsgUnavailable)
	case errors.Is(err, common.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, MsgRateLimited)
	default:
		return status.Error(codes.Internal, MsgInternal)
	}
}
