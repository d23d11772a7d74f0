package rest

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sgics/sgics/internal/server/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationPlan(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	status := func(context.Context) (schema.Status, error) {
		return schema.Status{
			Nodes: []schema.NodeStatus{
				{Migration: schema.NewSchema("pagos", "0001_initial", nil, schema.Operation{SQL: "SELECT 1"}), Applied: true, AppliedAt: at},
				{Migration: schema.NewDeferred("pagos", "0002_remove_legacy", "DROP TABLE pagos_pagolegacy", schema.Dep("pagos", "0001_initial"))},
			},
			Orphans: []schema.Key{schema.Dep("pagos", "0004_divergent")},
		}, nil
	}
	r := newTestRouter(t, newFakeUsers(), nil, status)

	w := do(t, r, http.MethodGet, "/api/migrations", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var plan migrationPlan
	decode(t, w, &plan)
	require.Len(t, plan.Nodes, 2)
	assert.Equal(t, 1, plan.Pending)
	assert.Equal(t, []string{"pagos/0004_divergent"}, plan.Orphans)

	assert.Equal(t, "schema", plan.Nodes[0].Kind)
	require.NotNil(t, plan.Nodes[0].AppliedAt)
	assert.True(t, at.Equal(*plan.Nodes[0].AppliedAt))

	assert.Equal(t, "deferred", plan.Nodes[1].Kind)
	assert.Equal(t, []string{"pagos/0001_initial"}, plan.Nodes[1].Dependencies)
	assert.Equal(t, "DROP TABLE pagos_pagolegacy", plan.Nodes[1].Note)
	assert.Nil(t, plan.Nodes[1].AppliedAt)
}

func TestMigrationPlan_Errors(t *testing.T) {
	r := newTestRouter(t, newFakeUsers(), nil, nil)
	w := do(t, r, http.MethodGet, "/api/migrations", memberToken, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	failing := func(context.Context) (schema.Status, error) { return schema.Status{}, errors.New("ledger gone") }
	r = newTestRouter(t, newFakeUsers(), nil, failing)
	w = do(t, r, http.MethodGet, "/api/migrations", memberToken, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(t, r, http.MethodGet, "/api/migrations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
