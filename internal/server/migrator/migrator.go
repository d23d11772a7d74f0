// Package migrator brings a database up to date: the core tables through
// goose, then the app namespaces through the migration graph.
package migrator

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sgics/sgics/internal/dbx"
	"github.com/sgics/sgics/internal/logging"
	"github.com/sgics/sgics/internal/server/migrations"
	"github.com/sgics/sgics/internal/server/repositories/repomanager"
	"github.com/sgics/sgics/internal/server/schema"
)

// loadApps is a seam for tests.
var loadApps = migrations.Apps

type Migrator struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	exec   *schema.Executor
	logger logging.Logger
}

func New(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *Migrator {
	ledger := func(db dbx.DBTX) schema.Ledger { return rm.Ledger(db) }
	return &Migrator{
		db:     db,
		rm:     rm,
		exec:   schema.NewExecutor(db, ledger, logger),
		logger: logger.With("module", "migrator"),
	}
}

// Plan resolves the embedded app migrations into application order.
func (m *Migrator) Plan() ([]schema.Migration, error) {
	all, err := loadApps()
	if err != nil {
		return nil, fmt.Errorf("load app migrations: %w", err)
	}
	return schema.Resolve(all)
}

// Status compares the plan with the ledger. The core tables must exist.
func (m *Migrator) Status(ctx context.Context) (schema.Status, error) {
	plan, err := m.Plan()
	if err != nil {
		return schema.Status{}, err
	}
	return m.exec.Status(ctx, plan)
}

// Apply resolves the plan before touching the database, so a broken graph
// leaves it unchanged. It then runs the core migrations and every pending
// app migration.
func (m *Migrator) Apply(ctx context.Context) ([]schema.Key, error) {
	plan, err := m.Plan()
	if err != nil {
		return nil, err
	}

	if err := m.rm.RunMigrations(ctx, m.db); err != nil {
		return nil, fmt.Errorf("core migrations: %w", err)
	}
	m.logger.Info(ctx, "core migrations applied")

	return m.exec.Apply(ctx, plan)
}
