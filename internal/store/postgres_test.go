package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplytrace/esg-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func testSupplier() *model.Supplier {
	return &model.Supplier{
		SchemaVersion: model.SupplierSchemaVersion,
		ID:            "sup-1",
		Name:          "Acme Industrial",
		Website:       "https://acme.example",
		ESG: model.ESGData{
			Segment: model.SegmentMedium,
			Updated: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestPostgresStore_CreateTask(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	task := model.Task{
		ID: "task-1", UserID: "user-1", OrgID: "org-1", Timestamp: now,
		Companies: []model.Company{
			{ID: "c-1", TaskID: "task-1", Name: "Acme", Status: model.CompanyStatusUnprocessed},
		},
	}

	mock.ExpectExec(`INSERT INTO tasks`).
		WithArgs("task-1", "user-1", "org-1", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO task_companies`).
		WithArgs("c-1", "task-1", "Acme", false, "unprocessed", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateTask(context.Background(), task))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTask_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, user_id, org_id, created_at FROM tasks WHERE id = \$1`).
		WithArgs("nonexistent-task").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetTask(context.Background(), "nonexistent-task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCompany(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, task_id, name, processed, status, error_message FROM task_companies`).
		WithArgs("task-1", "c-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "task_id", "name", "processed", "status", "error_message"}).
			AddRow("c-1", "task-1", "Acme", true, "success", ""))

	c, err := s.GetCompany(context.Background(), "task-1", "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.Name)
	assert.Equal(t, model.CompanyStatusSuccess, c.Status)
	assert.True(t, c.Processed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCompany_InvalidRecordRejected(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// error status must carry an error_message; a row without one is
	// malformed and rejected on read.
	mock.ExpectQuery(`SELECT id, task_id, name, processed, status, error_message FROM task_companies`).
		WithArgs("task-1", "c-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "task_id", "name", "processed", "status", "error_message"}).
			AddRow("c-1", "task-1", "Acme", true, "error", ""))

	_, err := s.GetCompany(context.Background(), "task-1", "c-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid company record")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCompanyResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE task_companies SET processed = \$1, status = \$2, error_message = \$3`).
		WithArgs(true, "error", "agent timed out", "task-1", "c-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateCompanyResult(context.Background(), "task-1", "c-1", model.CompanyStatusError, "agent timed out")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCompanyResult_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE task_companies`).
		WithArgs(true, "success", "", "task-1", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCompanyResult(context.Background(), "task-1", "missing", model.CompanyStatusSuccess, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutSupplier(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO suppliers`).
		WithArgs("sup-1", "org-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.PutSupplier(context.Background(), "org-1", testSupplier())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSupplier(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	doc, err := json.Marshal(testSupplier())
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT doc FROM suppliers`).
		WithArgs("org-1", "sup-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))

	sup, err := s.GetSupplier(context.Background(), "org-1", "sup-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Industrial", sup.Name)
	assert.Equal(t, model.SegmentMedium, sup.ESG.Segment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSupplier_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM suppliers`).
		WithArgs("org-1", "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSupplier(context.Background(), "org-1", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSupplier_MalformedDocRejected(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// Supplier documents missing required fields fail validation on read.
	mock.ExpectQuery(`SELECT doc FROM suppliers`).
		WithArgs("org-1", "sup-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow([]byte(`{"schema_version":1,"id":"sup-1"}`)))

	_, err := s.GetSupplier(context.Background(), "org-1", "sup-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid supplier document")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListSuppliers(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	first, err := json.Marshal(testSupplier())
	require.NoError(t, err)
	second := testSupplier()
	second.ID = "sup-2"
	second.Name = "Globex"
	secondDoc, err := json.Marshal(second)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT doc FROM suppliers WHERE org_id = \$1`).
		WithArgs("org-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(first).AddRow(secondDoc))

	suppliers, err := s.ListSuppliers(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, suppliers, 2)
	assert.Equal(t, "Acme Industrial", suppliers[0].Name)
	assert.Equal(t, "Globex", suppliers[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateSupplier_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE suppliers SET doc = \$1`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "org-1", "sup-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateSupplier(context.Background(), "org-1", testSupplier())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteSupplier(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM suppliers`).
		WithArgs("org-1", "sup-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteSupplier(context.Background(), "org-1", "sup-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
