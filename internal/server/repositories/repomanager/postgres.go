// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and the core platform migrations
// (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/sgics/sgics/internal/dbx"
	"github.com/sgics/sgics/internal/server/migrations"
	"github.com/sgics/sgics/internal/server/repositories/refreshtokens"
	"github.com/sgics/sgics/internal/server/repositories/schemaledger"
	"github.com/sgics/sgics/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes the core schema migration hook.
type PostgresRepositoryManager struct{}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// RefreshTokens returns a refreshtokens.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

// Ledger returns the graph-migration ledger bound to the provided DBTX.
func (m *PostgresRepositoryManager) Ledger(db dbx.DBTX) schemaledger.Repository {
	return schemaledger.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded core migrations (users, refresh tokens,
// graph ledger). App migrations are applied afterwards by schema.Executor.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Core)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, migrations.CoreDir)
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
