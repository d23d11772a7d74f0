package models

import "time"

// AppliedMigration is one row of the schema_graph_migrations ledger.
type AppliedMigration struct {
	App       string
	Name      string
	AppliedAt time.Time
}
