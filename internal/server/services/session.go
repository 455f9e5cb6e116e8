// Package services contains server-side business logic. This file implements
// SessionService: issuing token pairs, rotating refresh tokens with reuse
// detection, logout and access token verification.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/audit"
	"github.com/dmitrijs2005/authcore/internal/server/auth"
	"github.com/dmitrijs2005/authcore/internal/server/metrics"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Limiter throttles refresh attempts per user. Allow returns an error
// matching common.ErrRateLimited when the caller must back off.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// Auditor receives security events. It must not block.
type Auditor interface {
	Record(ctx context.Context, e audit.Event)
}

// IdentityResolver refreshes the claims of a user when an access token is
// minted during rotation. Without one, rotation reuses the email and role
// stored on the consumed session row. Returning common.ErrorUnauthorized
// rejects the rotation (e.g. a deactivated account).
type IdentityResolver interface {
	Identity(ctx context.Context, userID string) (models.Identity, error)
}

// SessionService is safe for concurrent use. It keeps no session state of
// its own: every decision about a refresh token is made by the store.
type SessionService struct {
	runner   dbx.Runner
	repos    repomanager.RepositoryManager
	tokens   *auth.TokenIssuer
	limiter  Limiter
	auditor  Auditor
	identity IdentityResolver
	metrics  *metrics.Metrics
	logger   logging.Logger
	theft    *theftDetector
	now      func() time.Time
}

type Option func(*SessionService)

func WithLimiter(l Limiter) Option { return func(s *SessionService) { s.limiter = l } }

func WithAuditor(a Auditor) Option { return func(s *SessionService) { s.auditor = a } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *SessionService) { s.metrics = m } }

func WithIdentityResolver(r IdentityResolver) Option {
	return func(s *SessionService) { s.identity = r }
}

// WithClock replaces time.Now for store comparisons, for tests.
func WithClock(now func() time.Time) Option { return func(s *SessionService) { s.now = now } }

// NewSessionService wires the service. tokens must come from
// auth.NewTokenIssuer so key misconfiguration has already failed.
func NewSessionService(runner dbx.Runner, repos repomanager.RepositoryManager, tokens *auth.TokenIssuer, logger logging.Logger, opts ...Option) *SessionService {
	s := &SessionService{
		runner: runner,
		repos:  repos,
		tokens: tokens,
		logger: logger.With("module", "session_service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.theft = &theftDetector{
		runner:  runner,
		repos:   repos,
		auditor: s.auditor,
		metrics: s.metrics,
		logger:  s.logger.With("component", "theft_detector"),
	}
	return s
}

// IssuePair creates a session row for id.UserID and signs a fresh pair. It
// is the login/registration entry point and the last step of rotation.
func (s *SessionService) IssuePair(ctx context.Context, id models.Identity) (*TokenPair, error) {
	if id.UserID == "" {
		return nil, fmt.Errorf("%w: empty user id", common.ErrorInternal)
	}

	pair, err := s.issuePair(ctx, s.runner.Conn(), id)
	if err != nil {
		return nil, err
	}

	s.metrics.SessionIssued()
	return pair, nil
}

func (s *SessionService) issuePair(ctx context.Context, db dbx.DBTX, id models.Identity) (*TokenPair, error) {
	session, err := s.repos.Sessions(db).Create(ctx, id, s.tokens.RefreshTTL())
	if err != nil {
		return nil, err
	}

	refresh, err := s.tokens.SignRefresh(session.UserID, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: sign refresh: %v", common.ErrorInternal, err)
	}

	access, accessExp, err := s.tokens.IssueAccess(id)
	if err != nil {
		return nil, fmt.Errorf("%w: sign access: %v", common.ErrorInternal, err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

// Logout revokes the session named by refreshToken. It never fails: an
// unverifiable token is treated as already logged out and store errors are
// only logged.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) {
	s.metrics.Logout()

	claims, err := s.tokens.InspectRefresh(refreshToken)
	if err != nil {
		s.logger.Debug(ctx, "logout with unverifiable token ignored")
		return
	}

	if err := s.repos.Sessions(s.runner.Conn()).Delete(ctx, claims.SessionID, claims.UserID); err != nil {
		s.logger.Warn(ctx, "logout delete failed", "user_id", claims.UserID, "error", err)
		return
	}

	s.logger.Info(ctx, "session logged out", "user_id", claims.UserID)
}

// LogoutAll revokes every session of userID and returns how many were live.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.repos.Sessions(s.runner.Conn()).DeleteAll(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "logout all failed", "user_id", userID, "error", err)
		return 0, err
	}

	s.logger.Info(ctx, "all sessions revoked", "user_id", userID, "count", n)
	if s.auditor != nil {
		e := audit.NewEvent(audit.KindLogoutAll, userID)
		e.Count = n
		s.auditor.Record(ctx, e)
	}
	return n, nil
}

// VerifyAccessToken checks an access token from its content alone.
func (s *SessionService) VerifyAccessToken(token string) (*models.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccess(token)
	switch {
	case err == nil:
		s.metrics.AccessVerification(metrics.ResultValid)
	case errors.Is(err, common.ErrTokenExpired):
		s.metrics.AccessVerification(metrics.ResultExpired)
	default:
		s.metrics.AccessVerification(metrics.ResultInvalid)
	}
	return claims, err
}

// ActiveSessions counts the unexpired sessions of userID.
func (s *SessionService) ActiveSessions(ctx context.Context, userID string) (int, error) {
	return s.repos.Sessions(s.runner.Conn()).CountActive(ctx, userID, s.now())
}
