package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/sessions"
)

// RepositoryManager vends repositories bound to a plain connection or a
// transaction, and migrates the schema.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Sessions(db dbx.DBTX) sessions.Repository
}
