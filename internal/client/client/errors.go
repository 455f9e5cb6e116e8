package client

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("too many refresh attempts")
	ErrNotLoggedIn  = errors.New("no session, issue one first")
)
