package audit

import (
	"context"

	"github.com/dmitrijs2005/authcore/internal/logging"
)

// LogSink writes each event as a structured log record.
type LogSink struct {
	logger logging.Logger
}

func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger.With("module", "audit")}
}

func (s *LogSink) Emit(ctx context.Context, e Event) {
	s.logger.Info(ctx, "audit event",
		"event_id", e.ID,
		"kind", string(e.Kind),
		"user_id", e.UserID,
		"session_id", e.SessionID,
		"count", e.Count,
		"at", e.At,
	)
}
