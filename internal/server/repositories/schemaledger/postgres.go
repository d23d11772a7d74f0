package schemaledger

import (
	"context"
	"fmt"

	"github.com/sgics/sgics/internal/common"
	"github.com/sgics/sgics/internal/dbx"
	"github.com/sgics/sgics/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.AppliedMigration, error) {
	query := `SELECT app, name, applied_at FROM schema_graph_migrations ORDER BY applied_at, app, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select applied migrations: %w", err)
	}
	defer rows.Close()

	var result []models.AppliedMigration
	for rows.Next() {
		var m models.AppliedMigration
		if err := rows.Scan(&m.App, &m.Name, &m.AppliedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) MarkApplied(ctx context.Context, app, name string) error {
	query := `
		INSERT INTO schema_graph_migrations (app, name)
		VALUES ($1, $2)
		ON CONFLICT (app, name) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, app, name)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", common.ErrorAlreadyExists, app, name)
	}
	return nil
}
