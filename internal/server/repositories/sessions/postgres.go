package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrStoreUnavailable, op, err)
}

// Create generates a 256-bit id and inserts the row. The expiry is truncated
// to whole seconds so it matches the exp claim of the refresh envelope.
func (r *PostgresRepository) Create(ctx context.Context, ident models.Identity, ttl time.Duration) (*models.Session, error) {
	id, err := common.NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("%w: generate session id: %v", common.ErrorInternal, err)
	}

	s := &models.Session{
		ID:        id,
		UserID:    ident.UserID,
		Email:     ident.Email,
		Role:      ident.Role,
		ExpiresAt: r.now().Add(ttl).UTC().Truncate(time.Second),
	}

	query := `
		INSERT INTO sessions (id, user_id, email, role, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	row := r.db.QueryRowContext(ctx, query, s.ID, s.UserID, s.Email, s.Role, s.ExpiresAt)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return nil, storeError("create", err)
	}

	return s, nil
}

// ConsumeIfPresent is the single-use gate: the row lock taken by DELETE makes
// a concurrent consumer wait and then match no row.
func (r *PostgresRepository) ConsumeIfPresent(ctx context.Context, sessionID, userID string, now time.Time) (*models.Session, error) {
	query := `
		DELETE FROM sessions
		WHERE id = $1 AND user_id = $2 AND expires_at > $3
		RETURNING email, role, expires_at, created_at`

	s := &models.Session{ID: sessionID, UserID: userID}
	err := r.db.QueryRowContext(ctx, query, sessionID, userID, now).
		Scan(&s.Email, &s.Role, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("consume", err)
	}

	return s, nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, storeError("delete all", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeError("delete all", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, sessionID, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return storeError("delete", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, storeError("delete expired", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeError("delete expired", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountActive(ctx context.Context, userID string, now time.Time) (int, error) {
	var n int

	query := `SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND expires_at > $2`
	if err := r.db.QueryRowContext(ctx, query, userID, now).Scan(&n); err != nil {
		return 0, storeError("count", err)
	}
	return n, nil
}
