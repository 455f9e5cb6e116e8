package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/audit"
	"github.com/dmitrijs2005/authcore/internal/server/auth"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/sessions"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memStore is an in-memory session table. Each method holds the lock for
// its whole body, which gives ConsumeIfPresent the same single-winner
// guarantee as the conditional DELETE.
type memStore struct {
	mu    sync.Mutex
	rows  map[string]models.Session
	now   func() time.Time
	calls int

	createErr    error
	consumeErr   error
	deleteErr    error
	deleteAllErr error
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{rows: map[string]models.Session{}, now: now}
}

func (m *memStore) Create(_ context.Context, ident models.Identity, ttl time.Duration) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	id, err := common.NewSessionID()
	if err != nil {
		return nil, err
	}
	now := m.now()
	s := models.Session{
		ID:        id,
		UserID:    ident.UserID,
		Email:     ident.Email,
		Role:      ident.Role,
		ExpiresAt: now.Add(ttl).UTC().Truncate(time.Second),
		CreatedAt: now,
	}
	m.rows[id] = s
	return &s, nil
}

func (m *memStore) ConsumeIfPresent(_ context.Context, sessionID, userID string, now time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.consumeErr != nil {
		return nil, m.consumeErr
	}
	s, ok := m.rows[sessionID]
	if !ok || s.UserID != userID || s.Expired(now) {
		return nil, nil
	}
	delete(m.rows, sessionID)
	return &s, nil
}

func (m *memStore) DeleteAll(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.deleteAllErr != nil {
		return 0, m.deleteAllErr
	}
	var n int64
	for id, s := range m.rows {
		if s.UserID == userID {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) Delete(_ context.Context, sessionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if s, ok := m.rows[sessionID]; ok && s.UserID == userID {
		delete(m.rows, sessionID)
	}
	return nil
}

func (m *memStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var n int64
	for id, s := range m.rows {
		if s.Expired(now) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountActive(_ context.Context, userID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	n := 0
	for _, s := range m.rows {
		if s.UserID == userID && !s.Expired(now) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok
}

func (m *memStore) countFor(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.rows {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type fakeManager struct{ store *memStore }

func (f *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeManager) Sessions(dbx.DBTX) sessions.Repository { return f.store }

// fakeRunner runs units of work inline and remembers how the last one ended.
type fakeRunner struct {
	mu       sync.Mutex
	beginErr error
	lastErr  error
	txCount  int
}

func (r *fakeRunner) Conn() dbx.DBTX { return nil }

func (r *fakeRunner) InTx(ctx context.Context, fn dbx.TxFunc) error {
	if r.beginErr != nil {
		return r.beginErr
	}
	err := fn(ctx, nil)
	r.mu.Lock()
	r.lastErr = err
	r.txCount++
	r.mu.Unlock()
	return err
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAuditor) Record(_ context.Context, e audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAuditor) snapshot() []audit.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]audit.Event(nil), a.events...)
}

type stubLimiter struct{ err error }

func (l stubLimiter) Allow(context.Context, string) error { return l.err }

type stubResolver struct {
	id  models.Identity
	err error
}

func (r stubResolver) Identity(context.Context, string) (models.Identity, error) {
	return r.id, r.err
}

type harness struct {
	svc    *SessionService
	store  *memStore
	runner *fakeRunner
	clock  *testClock
	tokens *auth.TokenIssuer
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	clock := &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens, err := auth.NewTokenIssuer(auth.Config{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "authcore-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, auth.WithClock(clock.Now))
	require.NoError(t, err)

	store := newMemStore(clock.Now)
	runner := &fakeRunner{}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	svc := NewSessionService(runner, &fakeManager{store: store}, tokens, logging.NewDiscardLogger(), opts...)

	return &harness{svc: svc, store: store, runner: runner, clock: clock, tokens: tokens}
}

func (h *harness) login(t *testing.T, userID string) *TokenPair {
	t.Helper()
	pair, err := h.svc.IssuePair(context.Background(), models.Identity{UserID: userID, Email: userID + "@example.com", Role: "user"})
	require.NoError(t, err)
	return pair
}

func (h *harness) sessionID(t *testing.T, refresh string) string {
	t.Helper()
	c, err := h.tokens.InspectRefresh(refresh)
	require.NoError(t, err)
	return c.SessionID
}
