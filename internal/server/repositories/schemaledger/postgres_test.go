package schemaledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sgics/sgics/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"app", "name", "applied_at"}).
		AddRow("pagos", "0001_initial", at).
		AddRow("pagos", "0002_comprobantepago", at.Add(time.Second))
	mock.ExpectQuery(`^SELECT\s+app,\s*name,\s*applied_at\s+FROM\s+schema_graph_migrations\s+ORDER\s+BY`).
		WillReturnRows(rows)

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "pagos", got[0].App)
	assert.Equal(t, "0002_comprobantepago", got[1].Name)
	assert.Equal(t, at, got[0].AppliedAt)
}

func TestList_Errors(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+schema_graph_migrations`).WillReturnError(errors.New("relation does not exist"))
	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to select applied migrations")

	mock.ExpectQuery(`FROM\s+schema_graph_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"app", "name", "applied_at"}).AddRow("pagos", "0001", "not-a-time"))
	_, err = repo.List(context.Background())
	assert.Error(t, err)
}

func TestMarkApplied(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+schema_graph_migrations\s*\(app,\s*name\)\s*VALUES\s*\(\$1,\s*\$2\)\s*ON\s+CONFLICT\s*\(app,\s*name\)\s*DO\s+NOTHING\s*$`
	mock.ExpectExec(q).WithArgs("cursos", "0001_initial").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("cursos", "0001_initial").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("cursos", "0002_x").WillReturnError(errors.New("db down"))

	require.NoError(t, repo.MarkApplied(context.Background(), "cursos", "0001_initial"))

	err := repo.MarkApplied(context.Background(), "cursos", "0001_initial")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	err = repo.MarkApplied(context.Background(), "cursos", "0002_x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
	require.NoError(t, mock.ExpectationsWereMet())
}
