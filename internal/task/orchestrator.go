// Package task manages enrichment batches: task creation, per-company
// dispatch, and read-side progress aggregation.
package task

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/supplytrace/esg-cli/internal/enrich"
	"github.com/supplytrace/esg-cli/internal/model"
	"github.com/supplytrace/esg-cli/internal/store"
)

// Enricher runs the research workflow for one company.
type Enricher interface {
	Enrich(ctx context.Context, name string, known model.KnownFields) (*model.Supplier, []enrich.QuestionError, error)
}

// Orchestrator drives companies through the enrichment workflow and keeps
// task and supplier state in the store. It holds no global state; construct
// one per process with an explicit store and enricher.
type Orchestrator struct {
	store    store.Store
	enricher Enricher
}

// New creates an Orchestrator.
func New(st store.Store, e Enricher) *Orchestrator {
	return &Orchestrator{store: st, enricher: e}
}

// CreateTask writes a new task with one unprocessed company per name.
// Blank names are dropped; surviving names keep their submission order.
func (o *Orchestrator) CreateTask(ctx context.Context, orgID, userID string, companyNames []string) (string, error) {
	t := model.Task{
		ID:        uuid.New().String(),
		UserID:    userID,
		OrgID:     orgID,
		Timestamp: time.Now().UTC(),
	}
	for _, name := range companyNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t.Companies = append(t.Companies, model.Company{
			ID:     uuid.New().String(),
			TaskID: t.ID,
			Name:   name,
			Status: model.CompanyStatusUnprocessed,
		})
	}
	if len(t.Companies) == 0 {
		return "", eris.New("task: no company names given")
	}

	if err := o.store.CreateTask(ctx, t); err != nil {
		return "", eris.Wrap(err, "task: create")
	}
	zap.L().Info("task created",
		zap.String("task_id", t.ID),
		zap.String("org_id", orgID),
		zap.Int("companies", len(t.Companies)),
	)
	return t.ID, nil
}

// ProcessCompany drives one company through the enrichment workflow. On
// success the supplier is persisted under the organization and the company
// is marked success. Any enrichment or supplier-write failure is recorded
// on the company record as a terminal error status and a nil supplier is
// returned; the returned error is reserved for failures that could not be
// recorded at all.
//
// Concurrent invocations for distinct companies are safe. At-most-one
// active invocation per company is the caller's responsibility.
func (o *Orchestrator) ProcessCompany(ctx context.Context, taskID, companyID, orgID string) (*model.Supplier, error) {
	log := zap.L().With(
		zap.String("task_id", taskID),
		zap.String("company_id", companyID),
	)

	company, err := o.store.GetCompany(ctx, taskID, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "task: load company")
	}
	if company.Processed {
		log.Warn("task: reprocessing an already-processed company",
			zap.String("prior_status", string(company.Status)),
		)
	}

	supplier, qErrs, err := o.enricher.Enrich(ctx, company.Name, model.KnownFields{})
	if err != nil {
		log.Error("task: enrichment failed", zap.Error(err))
		return nil, o.recordFailure(ctx, taskID, companyID, err)
	}
	for _, qe := range qErrs {
		log.Warn("task: question degraded",
			zap.String("question", qe.Key),
			zap.Error(qe.Err),
		)
	}

	if err := o.store.PutSupplier(ctx, orgID, supplier); err != nil {
		log.Error("task: supplier write failed", zap.Error(err))
		return nil, o.recordFailure(ctx, taskID, companyID, err)
	}

	if err := o.store.UpdateCompanyResult(ctx, taskID, companyID, model.CompanyStatusSuccess, ""); err != nil {
		return nil, eris.Wrap(err, "task: mark company success")
	}

	log.Info("task: company enriched",
		zap.String("supplier_id", supplier.ID),
		zap.String("segment", string(supplier.ESG.Segment)),
	)
	return supplier, nil
}

// recordFailure marks the company as terminally errored with the cause.
// Failing to record the failure is the only path that escalates.
func (o *Orchestrator) recordFailure(ctx context.Context, taskID, companyID string, cause error) error {
	if err := o.store.UpdateCompanyResult(ctx, taskID, companyID, model.CompanyStatusError, cause.Error()); err != nil {
		return eris.Wrapf(err, "task: record failure for company %s (cause: %v)", companyID, cause)
	}
	return nil
}

// ProcessTask fans out all unprocessed companies of a task, bounded by
// concurrency. Individual failures never abort siblings; cancellation stops
// dispatching further companies but does not interrupt in-flight work.
func (o *Orchestrator) ProcessTask(ctx context.Context, taskID, orgID string, concurrency int) (model.Progress, error) {
	companies, err := o.store.ListCompanies(ctx, taskID)
	if err != nil {
		return model.Progress{}, eris.Wrap(err, "task: list companies")
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for _, c := range companies {
		if c.Status != model.CompanyStatusUnprocessed {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := o.ProcessCompany(ctx, taskID, c.ID, orgID); err != nil {
				zap.L().Error("task: company processing failed",
					zap.String("company_id", c.ID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return o.Progress(ctx, taskID)
}

// Progress tallies company statuses for a task. The aggregate is computed
// on read and never stored.
func (o *Orchestrator) Progress(ctx context.Context, taskID string) (model.Progress, error) {
	companies, err := o.store.ListCompanies(ctx, taskID)
	if err != nil {
		return model.Progress{}, eris.Wrap(err, "task: list companies")
	}
	return model.ComputeProgress(companies), nil
}

// ListTasks returns an organization's tasks, newest first, with companies.
func (o *Orchestrator) ListTasks(ctx context.Context, orgID string) ([]model.Task, error) {
	return o.store.ListTasks(ctx, orgID)
}
