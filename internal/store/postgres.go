package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/supplytrace/esg-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// preparedStatements lists queries to prepare on each new connection for
// the hot per-company paths.
var preparedStatements = map[string]string{
	"get_company":    `SELECT id, task_id, name, processed, status, error_message FROM task_companies WHERE task_id = $1 AND id = $2`,
	"update_company": `UPDATE task_companies SET processed = $1, status = $2, error_message = $3 WHERE task_id = $4 AND id = $5`,
	"put_supplier":   `INSERT INTO suppliers (id, org_id, doc, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	org_id     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS task_companies (
	id            TEXT PRIMARY KEY,
	task_id       TEXT NOT NULL REFERENCES tasks(id),
	name          TEXT NOT NULL,
	processed     BOOLEAN NOT NULL DEFAULT false,
	status        TEXT NOT NULL DEFAULT 'unprocessed',
	error_message TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS suppliers (
	id         TEXT PRIMARY KEY,
	org_id     TEXT NOT NULL,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tasks_org_id ON tasks(org_id);
CREATE INDEX IF NOT EXISTS idx_task_companies_task_id ON task_companies(task_id);
CREATE INDEX IF NOT EXISTS idx_task_companies_status ON task_companies(task_id, status);
CREATE INDEX IF NOT EXISTS idx_suppliers_org_id ON suppliers(org_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, task model.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, user_id, org_id, created_at) VALUES ($1, $2, $3, $4)`,
		task.ID, task.UserID, task.OrgID, task.Timestamp,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert task %s", task.ID)
	}

	for _, c := range task.Companies {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO task_companies (id, task_id, name, processed, status, error_message) VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, task.ID, c.Name, c.Processed, string(c.Status), c.ErrorMessage,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert company %s", c.ID)
		}
	}
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	var t model.Task
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, org_id, created_at FROM tasks WHERE id = $1`,
		taskID,
	).Scan(&t.ID, &t.UserID, &t.OrgID, &t.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: task not found: %s", taskID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get task %s", taskID)
	}
	return &t, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, orgID string) ([]model.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, org_id, created_at FROM tasks WHERE org_id = $1 ORDER BY created_at DESC`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list tasks for org %s", orgID)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.OrgID, &t.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan task")
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate tasks")
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

func (s *PostgresStore) GetCompany(ctx context.Context, taskID, companyID string) (*model.Company, error) {
	var c model.Company
	err := s.pool.QueryRow(ctx,
		`SELECT id, task_id, name, processed, status, error_message FROM task_companies WHERE task_id = $1 AND id = $2`,
		taskID, companyID,
	).Scan(&c.ID, &c.TaskID, &c.Name, &c.Processed, &c.Status, &c.ErrorMessage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: company not found: %s/%s", taskID, companyID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %s/%s", taskID, companyID)
	}
	if err := c.Validate(); err != nil {
		return nil, eris.Wrap(err, "postgres: invalid company record")
	}
	return &c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, taskID string) ([]model.Company, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, name, processed, status, error_message FROM task_companies WHERE task_id = $1 ORDER BY id`,
		taskID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list companies for task %s", taskID)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Name, &c.Processed, &c.Status, &c.ErrorMessage); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: iterate companies")
}

func (s *PostgresStore) UpdateCompanyResult(ctx context.Context, taskID, companyID string, status model.CompanyStatus, errorMessage string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE task_companies SET processed = $1, status = $2, error_message = $3 WHERE task_id = $4 AND id = $5`,
		true, string(status), errorMessage, taskID, companyID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company %s/%s", taskID, companyID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: company not found: %s/%s", taskID, companyID)
	}
	return nil
}

func (s *PostgresStore) PutSupplier(ctx context.Context, orgID string, sup *model.Supplier) error {
	doc, err := json.Marshal(sup)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal supplier")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO suppliers (id, org_id, doc, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		sup.ID, orgID, doc, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert supplier %s", sup.ID)
}

func (s *PostgresStore) GetSupplier(ctx context.Context, orgID, supplierID string) (*model.Supplier, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM suppliers WHERE org_id = $1 AND id = $2`,
		orgID, supplierID,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: supplier not found: %s", supplierID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get supplier %s", supplierID)
	}
	return decodeSupplier(doc)
}

func (s *PostgresStore) ListSuppliers(ctx context.Context, orgID string) ([]model.Supplier, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM suppliers WHERE org_id = $1 ORDER BY created_at DESC`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list suppliers for org %s", orgID)
	}
	defer rows.Close()

	var suppliers []model.Supplier
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan supplier")
		}
		sup, err := decodeSupplier(doc)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, *sup)
	}
	return suppliers, eris.Wrap(rows.Err(), "postgres: iterate suppliers")
}

func (s *PostgresStore) UpdateSupplier(ctx context.Context, orgID string, sup *model.Supplier) error {
	doc, err := json.Marshal(sup)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal supplier")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE suppliers SET doc = $1, updated_at = $2 WHERE org_id = $3 AND id = $4`,
		doc, time.Now().UTC(), orgID, sup.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update supplier %s", sup.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: supplier not found: %s", sup.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteSupplier(ctx context.Context, orgID, supplierID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM suppliers WHERE org_id = $1 AND id = $2`,
		orgID, supplierID,
	)
	return eris.Wrapf(err, "postgres: delete supplier %s", supplierID)
}

// decodeSupplier parses and validates a persisted supplier document.
// Malformed documents are rejected, not best-effort parsed.
func decodeSupplier(doc []byte) (*model.Supplier, error) {
	var sup model.Supplier
	if err := json.Unmarshal(doc, &sup); err != nil {
		return nil, eris.Wrap(err, "store: decode supplier document")
	}
	if err := sup.Validate(); err != nil {
		return nil, eris.Wrap(err, "store: invalid supplier document")
	}
	return &sup, nil
}
