package services

import (
	"context"

	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/audit"
	"github.com/dmitrijs2005/authcore/internal/server/metrics"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
)

// theftDetector contains a replayed refresh token by revoking every session
// of its user. A replay is indistinguishable from a retry after a lost
// response; both are handled as theft.
type theftDetector struct {
	runner  dbx.Runner
	repos   repomanager.RepositoryManager
	auditor Auditor
	metrics *metrics.Metrics
	logger  logging.Logger
}

// contain never fails the caller: the rotation is rejected either way.
func (d *theftDetector) contain(ctx context.Context, claims *models.RefreshClaims) {
	n, err := d.repos.Sessions(d.runner.Conn()).DeleteAll(ctx, claims.UserID)
	if err != nil {
		d.logger.Error(ctx, "refresh reuse detected, revoking sessions failed",
			"user_id", claims.UserID, "error", err)
	} else {
		d.logger.Warn(ctx, "refresh reuse detected, all sessions revoked",
			"user_id", claims.UserID, "revoked", n)
		d.metrics.ReuseRevoked(n)
	}

	if d.auditor != nil {
		e := audit.NewEvent(audit.KindReuseDetected, claims.UserID)
		e.SessionID = claims.SessionID
		e.Count = n
		d.auditor.Record(ctx, e)
	}
}
