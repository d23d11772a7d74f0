package schema

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sgics/sgics/internal/dbx"
	"github.com/sgics/sgics/internal/logging"
	"github.com/sgics/sgics/internal/server/models"
)

// Ledger records applied migrations. schemaledger.Repository satisfies it.
type Ledger interface {
	List(ctx context.Context) ([]models.AppliedMigration, error)
	MarkApplied(ctx context.Context, app, name string) error
}

// LedgerFunc binds a Ledger to a handle, so the ledger row can be written in
// the same transaction as the migration's operations.
type LedgerFunc func(db dbx.DBTX) Ledger

// Executor applies a resolved plan to a database.
type Executor struct {
	db     *sql.DB
	ledger LedgerFunc
	logger logging.Logger
}

func NewExecutor(db *sql.DB, ledger LedgerFunc, logger logging.Logger) *Executor {
	return &Executor{db: db, ledger: ledger, logger: logger.With("module", "schema")}
}

// NodeStatus is one plan entry with its ledger state.
type NodeStatus struct {
	Migration Migration
	Applied   bool
	AppliedAt time.Time
}

// Status describes the database relative to a plan. Orphans are ledger rows
// with no node in the plan, a sign the database was migrated from a history
// that diverged from the catalogue.
type Status struct {
	Nodes   []NodeStatus
	Orphans []Key
}

// Pending returns the plan entries not yet applied, in plan order.
func (s Status) Pending() []Migration {
	var out []Migration
	for _, n := range s.Nodes {
		if !n.Applied {
			out = append(out, n.Migration)
		}
	}
	return out
}

// Status compares plan with the ledger without changing anything.
func (e *Executor) Status(ctx context.Context, plan []Migration) (Status, error) {
	applied, err := e.ledger(e.db).List(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("read ledger: %w", err)
	}

	at := make(map[Key]time.Time, len(applied))
	for _, a := range applied {
		at[Key{App: a.App, Name: a.Name}] = a.AppliedAt
	}

	var st Status
	inPlan := make(map[Key]struct{}, len(plan))
	for _, m := range plan {
		k := m.Key()
		inPlan[k] = struct{}{}
		t, ok := at[k]
		st.Nodes = append(st.Nodes, NodeStatus{Migration: m, Applied: ok, AppliedAt: t})
	}
	for _, a := range applied {
		k := Key{App: a.App, Name: a.Name}
		if _, ok := inPlan[k]; !ok {
			st.Orphans = append(st.Orphans, k)
		}
	}
	return st, nil
}

// Apply runs every pending migration of plan in order. Each migration's
// operations and its ledger row share one transaction. The first failure
// stops the walk; migrations applied before it stay applied. The returned
// slice lists what this call applied.
func (e *Executor) Apply(ctx context.Context, plan []Migration) ([]Key, error) {
	st, err := e.Status(ctx, plan)
	if err != nil {
		return nil, err
	}
	for _, o := range st.Orphans {
		e.logger.Warn(ctx, "ledger contains a migration unknown to the catalogue", "migration", o.String())
	}

	var done []Key
	for _, m := range st.Pending() {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := e.applyOne(ctx, m); err != nil {
			e.logger.Error(ctx, "migration failed", "migration", m.Key().String(), "error", err.Error())
			return done, fmt.Errorf("apply %s: %w", m.Key(), err)
		}
		done = append(done, m.Key())
	}

	e.logger.Info(ctx, "migrations up to date", "applied", len(done), "total", len(plan))
	return done, nil
}

func (e *Executor) applyOne(ctx context.Context, m Migration) error {
	err := dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for i, op := range m.Operations {
			if _, err := tx.ExecContext(ctx, op.SQL); err != nil {
				return fmt.Errorf("operation %d (%s): %w", i, op.Description, err)
			}
		}
		return e.ledger(tx).MarkApplied(ctx, m.App, m.Name)
	})
	if err != nil {
		return err
	}

	switch m.Kind {
	case KindDeferred:
		e.logger.Warn(ctx, "applied deferred migration; follow-up required", "migration", m.Key().String(), "deferred", m.Note)
	default:
		e.logger.Info(ctx, "applied migration", "migration", m.Key().String(), "kind", m.Kind.String(), "operations", len(m.Operations))
	}
	return nil
}
