package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/authcore/internal/client/migrations"
	"github.com/dmitrijs2005/authcore/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authcore/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"
)

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// TokenStore persists the current token pair between CLI runs.
type TokenStore struct {
	db   *sql.DB
	repo metadata.Repository
}

// OpenTokenStore opens (creating if needed) the SQLite state file at dsn
// and applies migrations.
func OpenTokenStore(ctx context.Context, dsn string) (*TokenStore, error) {
	if err := filex.EnsureParentDir(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &TokenStore{db: db, repo: metadata.NewSQLiteRepository(db)}, nil
}

func (s *TokenStore) Load(ctx context.Context) (Tokens, error) {
	access, err := s.repo.Get(ctx, accessTokenKey)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := s.repo.Get(ctx, refreshTokenKey)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: string(access), RefreshToken: string(refresh)}, nil
}

// Save replaces the stored pair. An empty pair clears the store.
func (s *TokenStore) Save(ctx context.Context, t Tokens) error {
	if t.Empty() {
		return s.repo.Clear(ctx)
	}
	if err := s.repo.Set(ctx, accessTokenKey, []byte(t.AccessToken)); err != nil {
		return err
	}
	return s.repo.Set(ctx, refreshTokenKey, []byte(t.RefreshToken))
}

func (s *TokenStore) Close() error {
	return s.db.Close()
}
