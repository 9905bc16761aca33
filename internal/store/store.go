// Package store is the narrow persistence contract the task orchestrator
// depends on: tasks with their company sub-records, and supplier documents
// owned by organizations.
package store

import (
	"context"

	"github.com/supplytrace/esg-cli/internal/model"
)

// Store defines the persistence interface for the enrichment pipeline.
// All writes are scoped to a single company or supplier record; there is
// deliberately no cross-document transaction, since partial-batch success
// is an expected outcome.
type Store interface {
	// Tasks
	CreateTask(ctx context.Context, task model.Task) error
	GetTask(ctx context.Context, taskID string) (*model.Task, error)
	ListTasks(ctx context.Context, orgID string) ([]model.Task, error)

	// Companies (task sub-records)
	GetCompany(ctx context.Context, taskID, companyID string) (*model.Company, error)
	ListCompanies(ctx context.Context, taskID string) ([]model.Company, error)
	UpdateCompanyResult(ctx context.Context, taskID, companyID string, status model.CompanyStatus, errorMessage string) error

	// Suppliers (org-owned documents)
	PutSupplier(ctx context.Context, orgID string, s *model.Supplier) error
	GetSupplier(ctx context.Context, orgID, supplierID string) (*model.Supplier, error)
	ListSuppliers(ctx context.Context, orgID string) ([]model.Supplier, error)
	UpdateSupplier(ctx context.Context, orgID string, s *model.Supplier) error
	DeleteSupplier(ctx context.Context, orgID, supplierID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
