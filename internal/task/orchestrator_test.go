package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplytrace/esg-cli/internal/enrich"
	"github.com/supplytrace/esg-cli/internal/model"
)

// memStore is an in-memory Store for orchestrator tests. Write failures can
// be injected per method.
type memStore struct {
	mu        sync.Mutex
	tasks     map[string]model.Task
	suppliers map[string]map[string]model.Supplier

	putSupplierErr   error
	updateCompanyErr error
}

func newMemStore() *memStore {
	return &memStore{
		tasks:     make(map[string]model.Task),
		suppliers: make(map[string]map[string]model.Supplier),
	}
}

func (m *memStore) CreateTask(_ context.Context, t model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
	return nil
}

func (m *memStore) GetTask(_ context.Context, taskID string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, eris.Errorf("task %s not found", taskID)
	}
	return &t, nil
}

func (m *memStore) ListTasks(_ context.Context, orgID string) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Task
	for _, t := range m.tasks {
		if t.OrgID == orgID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) GetCompany(_ context.Context, taskID, companyID string) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, eris.Errorf("task %s not found", taskID)
	}
	for _, c := range t.Companies {
		if c.ID == companyID {
			return &c, nil
		}
	}
	return nil, eris.Errorf("company %s not found", companyID)
}

func (m *memStore) ListCompanies(_ context.Context, taskID string) ([]model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, eris.Errorf("task %s not found", taskID)
	}
	out := make([]model.Company, len(t.Companies))
	copy(out, t.Companies)
	return out, nil
}

func (m *memStore) UpdateCompanyResult(_ context.Context, taskID, companyID string, status model.CompanyStatus, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateCompanyErr != nil {
		return m.updateCompanyErr
	}
	t, ok := m.tasks[taskID]
	if !ok {
		return eris.Errorf("task %s not found", taskID)
	}
	for i, c := range t.Companies {
		if c.ID == companyID {
			t.Companies[i].Processed = true
			t.Companies[i].Status = status
			t.Companies[i].ErrorMessage = errorMessage
			m.tasks[taskID] = t
			return nil
		}
	}
	return eris.Errorf("company %s not found", companyID)
}

func (m *memStore) PutSupplier(_ context.Context, orgID string, s *model.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putSupplierErr != nil {
		return m.putSupplierErr
	}
	if m.suppliers[orgID] == nil {
		m.suppliers[orgID] = make(map[string]model.Supplier)
	}
	m.suppliers[orgID][s.ID] = *s
	return nil
}

func (m *memStore) GetSupplier(_ context.Context, orgID, supplierID string) (*model.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[orgID][supplierID]
	if !ok {
		return nil, eris.Errorf("supplier %s not found", supplierID)
	}
	return &s, nil
}

func (m *memStore) ListSuppliers(_ context.Context, orgID string) ([]model.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Supplier
	for _, s := range m.suppliers[orgID] {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) UpdateSupplier(ctx context.Context, orgID string, s *model.Supplier) error {
	return m.PutSupplier(ctx, orgID, s)
}

func (m *memStore) DeleteSupplier(_ context.Context, orgID, supplierID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.suppliers[orgID], supplierID)
	return nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Ping(context.Context) error    { return nil }
func (m *memStore) Close() error                  { return nil }

func (m *memStore) supplierCount(orgID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.suppliers[orgID])
}

// stubEnricher fails for names listed in failNames and succeeds otherwise.
type stubEnricher struct {
	failNames map[string]bool
	qErrs     []enrich.QuestionError
}

func (s *stubEnricher) Enrich(_ context.Context, name string, _ model.KnownFields) (*model.Supplier, []enrich.QuestionError, error) {
	if s.failNames[name] {
		return nil, nil, &enrich.IdentityError{Err: eris.New("no such company found")}
	}
	return &model.Supplier{
		SchemaVersion: model.SupplierSchemaVersion,
		ID:            uuid.New().String(),
		Name:          name,
		ESG: model.ESGData{
			Segment: model.SegmentLow,
			Updated: time.Now().UTC(),
		},
	}, s.qErrs, nil
}

func seedTask(t *testing.T, st *memStore, orgID string, names []string) (taskID string, companies []model.Company) {
	t.Helper()
	o := New(st, nil)
	taskID, err := o.CreateTask(context.Background(), orgID, "user-1", names)
	require.NoError(t, err)
	companies, err = st.ListCompanies(context.Background(), taskID)
	require.NoError(t, err)
	return taskID, companies
}

func TestCreateTask(t *testing.T) {
	st := newMemStore()
	o := New(st, nil)

	taskID, err := o.CreateTask(context.Background(), "org-1", "user-1",
		[]string{" Acme ", "", "Globex", "   "})
	require.NoError(t, err)

	companies, err := st.ListCompanies(context.Background(), taskID)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "Acme", companies[0].Name)
	assert.Equal(t, "Globex", companies[1].Name)
	for _, c := range companies {
		assert.Equal(t, model.CompanyStatusUnprocessed, c.Status)
		assert.False(t, c.Processed)
		assert.Equal(t, taskID, c.TaskID)
	}
}

func TestCreateTask_NoUsableNames(t *testing.T) {
	o := New(newMemStore(), nil)
	_, err := o.CreateTask(context.Background(), "org-1", "user-1", []string{"", "  "})
	assert.Error(t, err)
}

func TestProcessCompany_Success(t *testing.T) {
	st := newMemStore()
	taskID, companies := seedTask(t, st, "org-1", []string{"Acme"})
	o := New(st, &stubEnricher{})

	supplier, err := o.ProcessCompany(context.Background(), taskID, companies[0].ID, "org-1")
	require.NoError(t, err)
	require.NotNil(t, supplier)
	assert.Equal(t, "Acme", supplier.Name)

	c, err := st.GetCompany(context.Background(), taskID, companies[0].ID)
	require.NoError(t, err)
	assert.True(t, c.Processed)
	assert.Equal(t, model.CompanyStatusSuccess, c.Status)
	assert.Empty(t, c.ErrorMessage)

	_, err = st.GetSupplier(context.Background(), "org-1", supplier.ID)
	assert.NoError(t, err)
}

func TestProcessCompany_EnrichFailureIsRecorded(t *testing.T) {
	st := newMemStore()
	taskID, companies := seedTask(t, st, "org-1", []string{"Acme"})
	o := New(st, &stubEnricher{failNames: map[string]bool{"Acme": true}})

	supplier, err := o.ProcessCompany(context.Background(), taskID, companies[0].ID, "org-1")
	// The failure was recorded on the company record, so the call itself
	// succeeds with no supplier.
	require.NoError(t, err)
	assert.Nil(t, supplier)

	c, err := st.GetCompany(context.Background(), taskID, companies[0].ID)
	require.NoError(t, err)
	assert.True(t, c.Processed)
	assert.Equal(t, model.CompanyStatusError, c.Status)
	assert.NotEmpty(t, c.ErrorMessage)
	assert.Equal(t, 0, st.supplierCount("org-1"))
}

func TestProcessCompany_SupplierWriteFailureIsRecorded(t *testing.T) {
	st := newMemStore()
	st.putSupplierErr = eris.New("disk full")
	taskID, companies := seedTask(t, st, "org-1", []string{"Acme"})
	o := New(st, &stubEnricher{})

	supplier, err := o.ProcessCompany(context.Background(), taskID, companies[0].ID, "org-1")
	require.NoError(t, err)
	assert.Nil(t, supplier)

	c, err := st.GetCompany(context.Background(), taskID, companies[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.CompanyStatusError, c.Status)
	assert.Contains(t, c.ErrorMessage, "disk full")
}

func TestProcessCompany_UnrecordableFailureEscalates(t *testing.T) {
	st := newMemStore()
	taskID, companies := seedTask(t, st, "org-1", []string{"Acme"})
	st.updateCompanyErr = eris.New("connection reset")
	o := New(st, &stubEnricher{failNames: map[string]bool{"Acme": true}})

	_, err := o.ProcessCompany(context.Background(), taskID, companies[0].ID, "org-1")
	assert.Error(t, err)
}

func TestProcessCompany_UnknownCompany(t *testing.T) {
	st := newMemStore()
	taskID, _ := seedTask(t, st, "org-1", []string{"Acme"})
	o := New(st, &stubEnricher{})

	_, err := o.ProcessCompany(context.Background(), taskID, "no-such-id", "org-1")
	assert.Error(t, err)
}

func TestProcessTask_FailureIsolation(t *testing.T) {
	st := newMemStore()
	names := []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli"}
	taskID, _ := seedTask(t, st, "org-1", names)
	o := New(st, &stubEnricher{failNames: map[string]bool{"Initech": true}})

	progress, err := o.ProcessTask(context.Background(), taskID, "org-1", 3)
	require.NoError(t, err)

	assert.Equal(t, model.Progress{
		Total:     5,
		Succeeded: 4,
		Errored:   1,
		Remaining: 0,
	}, progress)

	companies, err := st.ListCompanies(context.Background(), taskID)
	require.NoError(t, err)
	for _, c := range companies {
		assert.True(t, c.Processed, c.Name)
		if c.Name == "Initech" {
			assert.Equal(t, model.CompanyStatusError, c.Status)
			assert.NotEmpty(t, c.ErrorMessage)
		} else {
			assert.Equal(t, model.CompanyStatusSuccess, c.Status)
			assert.Empty(t, c.ErrorMessage)
		}
	}
	assert.Equal(t, 4, st.supplierCount("org-1"))
}

func TestProcessTask_SkipsProcessedCompanies(t *testing.T) {
	st := newMemStore()
	taskID, companies := seedTask(t, st, "org-1", []string{"Acme", "Globex"})
	require.NoError(t, st.UpdateCompanyResult(context.Background(), taskID, companies[0].ID, model.CompanyStatusSuccess, ""))

	o := New(st, &stubEnricher{})
	progress, err := o.ProcessTask(context.Background(), taskID, "org-1", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, progress.Succeeded)
	// Only Globex went through enrichment, so exactly one supplier landed.
	assert.Equal(t, 1, st.supplierCount("org-1"))
}

func TestProcessTask_CancelledContextStopsDispatch(t *testing.T) {
	st := newMemStore()
	taskID, _ := seedTask(t, st, "org-1", []string{"Acme", "Globex"})
	o := New(st, &stubEnricher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	progress, err := o.ProcessTask(ctx, taskID, "org-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Remaining)
}

func TestProgress(t *testing.T) {
	st := newMemStore()
	taskID, companies := seedTask(t, st, "org-1", []string{"Acme", "Globex", "Initech"})
	require.NoError(t, st.UpdateCompanyResult(context.Background(), taskID, companies[0].ID, model.CompanyStatusSuccess, ""))
	require.NoError(t, st.UpdateCompanyResult(context.Background(), taskID, companies[1].ID, model.CompanyStatusError, "boom"))

	o := New(st, nil)
	progress, err := o.Progress(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.Progress{Total: 3, Succeeded: 1, Errored: 1, Remaining: 1}, progress)
}
