package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/server/metrics"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// RotateOutcome classifies a rotation attempt.
type RotateOutcome int

const (
	RotateOK RotateOutcome = iota
	// RotateInvalidToken: the envelope failed verification. No store access.
	RotateInvalidToken
	// RotateReuseDetected: the envelope was genuine but its session row was
	// gone, so every session of the user has been revoked.
	RotateReuseDetected
	RotateRateLimited
	RotateStoreUnavailable
	// RotateInternal: signing or identity lookup failed. Nothing committed.
	RotateInternal
)

func (o RotateOutcome) String() string {
	switch o {
	case RotateOK:
		return metrics.OutcomeOK
	case RotateInvalidToken:
		return metrics.OutcomeInvalidToken
	case RotateReuseDetected:
		return metrics.OutcomeReuseDetected
	case RotateRateLimited:
		return metrics.OutcomeRateLimited
	case RotateStoreUnavailable:
		return metrics.OutcomeStoreUnavailable
	default:
		return "internal"
	}
}

// RotateResult is the outcome of RotateDetailed. Pair is set only for
// RotateOK; Err carries the cause for the failure outcomes.
type RotateResult struct {
	Outcome RotateOutcome
	Pair    *TokenPair
	UserID  string
	Err     error
}

var errSessionConsumed = errors.New("session already consumed")

// Rotate exchanges a refresh token for a new pair. Invalid and replayed
// tokens both fail with common.ErrorUnauthorized so callers learn nothing
// about which check failed.
func (s *SessionService) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	res := s.RotateDetailed(ctx, refreshToken)

	switch res.Outcome {
	case RotateOK:
		return res.Pair, nil
	case RotateInvalidToken, RotateReuseDetected:
		return nil, common.ErrorUnauthorized
	case RotateRateLimited:
		return nil, common.ErrRateLimited
	case RotateStoreUnavailable:
		return nil, res.Err
	default:
		return nil, common.ErrorInternal
	}
}

// RotateDetailed runs the rotate-or-detect-theft protocol. The consume of
// the old row and the insert of the new one share a transaction, so either
// both are committed or neither is.
func (s *SessionService) RotateDetailed(ctx context.Context, refreshToken string) RotateResult {
	res := s.rotate(ctx, refreshToken)
	s.metrics.Rotation(res.Outcome.String())
	return res
}

func (s *SessionService) rotate(ctx context.Context, refreshToken string) RotateResult {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.Debug(ctx, "refresh envelope rejected", "error", err)
		return RotateResult{Outcome: RotateInvalidToken, Err: err}
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, claims.UserID); errors.Is(err, common.ErrRateLimited) {
			s.logger.Warn(ctx, "refresh rate limited", "user_id", claims.UserID)
			return RotateResult{Outcome: RotateRateLimited, UserID: claims.UserID, Err: err}
		}
	}

	var resolved *models.Identity
	if s.identity != nil {
		id, err := s.identity.Identity(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorUnauthorized) {
				return RotateResult{Outcome: RotateInvalidToken, UserID: claims.UserID, Err: err}
			}
			s.logger.Error(ctx, "identity lookup failed", "user_id", claims.UserID, "error", err)
			return RotateResult{Outcome: RotateInternal, UserID: claims.UserID, Err: err}
		}
		id.UserID = claims.UserID
		resolved = &id
	}

	var pair *TokenPair
	err = s.runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		row, err := s.repos.Sessions(tx).ConsumeIfPresent(ctx, claims.SessionID, claims.UserID, s.now())
		if err != nil {
			return err
		}
		if row == nil {
			return errSessionConsumed
		}

		id := row.Identity()
		if resolved != nil {
			id = *resolved
		}

		pair, err = s.issuePair(ctx, tx, id)
		return err
	})

	switch {
	case err == nil:
		s.logger.Debug(ctx, "refresh rotated", "user_id", claims.UserID)
		return RotateResult{Outcome: RotateOK, Pair: pair, UserID: claims.UserID}

	case errors.Is(err, errSessionConsumed):
		s.theft.contain(ctx, claims)
		return RotateResult{Outcome: RotateReuseDetected, UserID: claims.UserID, Err: common.ErrorUnauthorized}

	case errors.Is(err, common.ErrorInternal):
		s.logger.Error(ctx, "rotation failed", "user_id", claims.UserID, "error", err)
		return RotateResult{Outcome: RotateInternal, UserID: claims.UserID, Err: err}

	default:
		if !errors.Is(err, common.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
		}
		s.logger.Error(ctx, "rotation store failure", "user_id", claims.UserID, "error", err)
		return RotateResult{Outcome: RotateStoreUnavailable, UserID: claims.UserID, Err: err}
	}
}
