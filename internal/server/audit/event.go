// Package audit records security-relevant session events off the request
// path. Events never reach API clients.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindReuseDetected Kind = "refresh_reuse_detected"
	KindLogoutAll     Kind = "logout_all"
)

type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id,omitempty"`
	Count     int64     `json:"count"`
	At        time.Time `json:"at"`
}

// NewEvent stamps a fresh id and the current UTC time.
func NewEvent(kind Kind, userID string) Event {
	return Event{
		ID:     uuid.NewString(),
		Kind:   kind,
		UserID: userID,
		At:     time.Now().UTC(),
	}
}

// Sink receives events. Implementations must be safe for use by one
// dispatcher goroutine and report their own failures.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// MultiSink fans an event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}
