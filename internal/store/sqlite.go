package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/supplytrace/esg-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	org_id     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS task_companies (
	id            TEXT PRIMARY KEY,
	task_id       TEXT NOT NULL REFERENCES tasks(id),
	name          TEXT NOT NULL,
	processed     INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'unprocessed',
	error_message TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS suppliers (
	id         TEXT PRIMARY KEY,
	org_id     TEXT NOT NULL,
	doc        TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tasks_org_id ON tasks(org_id);
CREATE INDEX IF NOT EXISTS idx_task_companies_task_id ON task_companies(task_id);
CREATE INDEX IF NOT EXISTS idx_suppliers_org_id ON suppliers(org_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, org_id, created_at) VALUES (?, ?, ?, ?)`,
		task.ID, task.UserID, task.OrgID, task.Timestamp,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert task %s", task.ID)
	}
	for _, c := range task.Companies {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO task_companies (id, task_id, name, processed, status, error_message) VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, task.ID, c.Name, c.Processed, string(c.Status), c.ErrorMessage,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert company %s", c.ID)
		}
	}
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	var t model.Task
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, org_id, created_at FROM tasks WHERE id = ?`,
		taskID,
	).Scan(&t.ID, &t.UserID, &t.OrgID, &t.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: task not found: %s", taskID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get task %s", taskID)
	}
	return &t, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, orgID string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, org_id, created_at FROM tasks WHERE org_id = ? ORDER BY created_at DESC`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list tasks for org %s", orgID)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.OrgID, &t.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan task")
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate tasks")
	}

	for i := range tasks {
		companies, err := s.ListCompanies(ctx, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].Companies = companies
	}
	return tasks, nil
}

func (s *SQLiteStore) GetCompany(ctx context.Context, taskID, companyID string) (*model.Company, error) {
	var c model.Company
	err := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, name, processed, status, error_message FROM task_companies WHERE task_id = ? AND id = ?`,
		taskID, companyID,
	).Scan(&c.ID, &c.TaskID, &c.Name, &c.Processed, &c.Status, &c.ErrorMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: company not found: %s/%s", taskID, companyID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %s/%s", taskID, companyID)
	}
	if err := c.Validate(); err != nil {
		return nil, eris.Wrap(err, "sqlite: invalid company record")
	}
	return &c, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, taskID string) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, name, processed, status, error_message FROM task_companies WHERE task_id = ? ORDER BY id`,
		taskID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list companies for task %s", taskID)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Name, &c.Processed, &c.Status, &c.ErrorMessage); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: iterate companies")
}

func (s *SQLiteStore) UpdateCompanyResult(ctx context.Context, taskID, companyID string, status model.CompanyStatus, errorMessage string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE task_companies SET processed = 1, status = ?, error_message = ? WHERE task_id = ? AND id = ?`,
		string(status), errorMessage, taskID, companyID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company %s/%s", taskID, companyID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: company not found: %s/%s", taskID, companyID)
	}
	return nil
}

func (s *SQLiteStore) PutSupplier(ctx context.Context, orgID string, sup *model.Supplier) error {
	doc, err := json.Marshal(sup)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal supplier")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO suppliers (id, org_id, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		sup.ID, orgID, string(doc), now, now,
	)
	return eris.Wrapf(err, "sqlite: insert supplier %s", sup.ID)
}

func (s *SQLiteStore) GetSupplier(ctx context.Context, orgID, supplierID string) (*model.Supplier, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM suppliers WHERE org_id = ? AND id = ?`,
		orgID, supplierID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: supplier not found: %s", supplierID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get supplier %s", supplierID)
	}
	return decodeSupplier([]byte(doc))
}

func (s *SQLiteStore) ListSuppliers(ctx context.Context, orgID string) ([]model.Supplier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM suppliers WHERE org_id = ? ORDER BY created_at DESC`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list suppliers for org %s", orgID)
	}
	defer rows.Close()

	var suppliers []model.Supplier
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan supplier")
		}
		sup, err := decodeSupplier([]byte(doc))
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, *sup)
	}
	return suppliers, eris.Wrap(rows.Err(), "sqlite: iterate suppliers")
}

func (s *SQLiteStore) UpdateSupplier(ctx context.Context, orgID string, sup *model.Supplier) error {
	doc, err := json.Marshal(sup)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal supplier")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE suppliers SET doc = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		string(doc), time.Now().UTC(), orgID, sup.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update supplier %s", sup.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: supplier not found: %s", sup.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteSupplier(ctx context.Context, orgID, supplierID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM suppliers WHERE org_id = ? AND id = ?`,
		orgID, supplierID,
	)
	return eris.Wrapf(err, "sqlite: delete supplier %s", supplierID)
}
