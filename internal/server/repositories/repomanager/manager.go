package repomanager

import (
	"context"
	"database/sql"

	"github.com/sgics/sgics/internal/dbx"
	"github.com/sgics/sgics/internal/server/repositories/refreshtokens"
	"github.com/sgics/sgics/internal/server/repositories/schemaledger"
	"github.com/sgics/sgics/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Ledger(db dbx.DBTX) schemaledger.Repository
}
