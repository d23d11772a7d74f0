// Package schemaledger records which graph migrations have been applied to
// the target database (table schema_graph_migrations).
package schemaledger

import (
	"context"

	"github.com/sgics/sgics/internal/server/models"
)

type Repository interface {
	// List returns every applied migration ordered by application time.
	List(ctx context.Context) ([]models.AppliedMigration, error)
	// MarkApplied records (app, name). Recording the same pair twice is a
	// common.ErrorAlreadyExists error.
	MarkApplied(ctx context.Context, app, name string) error
}
