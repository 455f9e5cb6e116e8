// Package common defines shared constants and sentinel errors used across
// client and server layers of authcore. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStoreUnavailable marks infrastructure failures of the session store.
	// It is transient: callers may retry with backoff but must not treat it
	// as "not authenticated".
	ErrStoreUnavailable = errors.New("session store unavailable")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrRateLimited    = errors.New("too many refresh attempts")

	// ErrInvalidToken covers malformed, unsigned, mis-signed or expired
	// access and refresh envelopes.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is the expired flavour of ErrInvalidToken; it matches
	// both sentinels with errors.Is.
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrInvalidToken)
)
