// Package enrich runs the ESG question set against one company and
// assembles the resulting supplier record.
package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/supplytrace/esg-cli/internal/agent"
	"github.com/supplytrace/esg-cli/internal/model"
	"github.com/supplytrace/esg-cli/internal/questions"
	"github.com/supplytrace/esg-cli/internal/scorer"
)

// maxQuestionConcurrency bounds concurrent agent calls within one company.
// Cross-company fan-out is the caller's concern.
const maxQuestionConcurrency = 3

const supplierInfoSchema = `Return a valid JSON object:
{"name": "<canonical company name>", "website": "<URL or empty>", "description": "<what this company does>"}`

const dataSummarySchema = `Return a valid JSON object:
{"available": <true if explicit first-party data was found>, "summary": "<what was found, empty if unavailable>", "sources": [{"key_quote": "<verbatim quote>", "link": "<URL>"}]}`

// IdentityError marks a failed basic-info step. Unlike scored question
// failures, it is fatal: no supplier is created for the company.
type IdentityError struct {
	Err error
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("identity resolution: %v", e.Err)
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

// QuestionError records a scored question that failed. The failure is
// absorbed into an unavailable DataSummary for scoring; the cause is kept
// for diagnostics.
type QuestionError struct {
	Key string
	Err error
}

// Enricher drives the per-company research workflow.
type Enricher struct {
	agent     agent.Agent
	questions []questions.Question
	now       func() time.Time
}

// New creates an Enricher over the given agent and question set.
func New(a agent.Agent, qs []questions.Question) *Enricher {
	return &Enricher{agent: a, questions: qs, now: time.Now}
}

// Enrich runs the full question set for one company and returns the
// assembled supplier. Scored question failures degrade to unavailable data
// and are returned as diagnostics; a basic-info failure aborts the run with
// an *IdentityError and no supplier.
func (e *Enricher) Enrich(ctx context.Context, name string, known model.KnownFields) (*model.Supplier, []QuestionError, error) {
	log := zap.L().With(zap.String("company", name))
	log.Info("enrich: starting")

	info, err := e.resolveIdentity(ctx, name, known)
	if err != nil {
		return nil, nil, err
	}

	results, qErrs := e.runScored(ctx, name, known)

	score, segment := scorer.Score(results)
	log.Info("enrich: scored",
		zap.Int("score", score),
		zap.String("segment", string(segment)),
		zap.Int("question_errors", len(qErrs)),
	)

	esg := model.ESGData{
		Segment: segment,
		Updated: e.now().UTC(),
	}
	for key, d := range results {
		esg.SetByKey(key, d)
	}

	supplier := &model.Supplier{
		SchemaVersion: model.SupplierSchemaVersion,
		ID:            uuid.New().String(),
		Name:          info.Name,
		Website:       info.Website,
		Description:   info.Description,
		Notes:         known.Notes,
		ESG:           esg,
	}
	return supplier, qErrs, nil
}

// resolveIdentity runs the basic-info question. Fields the agent cannot
// resolve fall back to the caller-provided values.
func (e *Enricher) resolveIdentity(ctx context.Context, name string, known model.KnownFields) (model.AgentSupplierInfo, error) {
	q, ok := e.question(questions.KeyBasicInfo)
	if !ok {
		// Question set without a basic-info entry: identity comes entirely
		// from the caller-provided fields.
		return model.AgentSupplierInfo{Name: name, Website: known.Website, Description: known.Description}, nil
	}

	var info model.AgentSupplierInfo
	prompt := q.Render(name, known) + "\n\n" + supplierInfoSchema
	if err := e.agent.Run(ctx, prompt, &info); err != nil {
		return model.AgentSupplierInfo{}, &IdentityError{Err: err}
	}

	if info.Name == "" {
		info.Name = name
	}
	if info.Website == "" {
		info.Website = known.Website
	}
	if info.Description == "" {
		info.Description = known.Description
	}
	return info, nil
}

// runScored executes the six scored questions independently. One question's
// failure never short-circuits the others.
func (e *Enricher) runScored(ctx context.Context, name string, known model.KnownFields) (map[string]model.DataSummary, []QuestionError) {
	results := make(map[string]model.DataSummary, len(model.ScoredKeys))
	var qErrs []QuestionError
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxQuestionConcurrency)

	for _, q := range e.questions {
		if !q.Scored {
			continue
		}
		g.Go(func() error {
			d, err := e.runOne(gctx, q, name, known)

			mu.Lock()
			defer mu.Unlock()
			results[q.Key] = d
			if err != nil {
				qErrs = append(qErrs, QuestionError{Key: q.Key, Err: err})
				zap.L().Warn("enrich: scored question failed",
					zap.String("company", name),
					zap.String("question", q.Key),
					zap.Error(err),
				)
			}
			return nil // failures degrade, never abort siblings
		})
	}
	_ = g.Wait()

	return results, qErrs
}

// runOne executes a single scored question and normalizes the result so the
// DataSummary invariant holds: unavailable results carry no summary or
// sources, available results carry a non-empty summary.
func (e *Enricher) runOne(ctx context.Context, q questions.Question, name string, known model.KnownFields) (model.DataSummary, error) {
	var d model.DataSummary
	prompt := q.Render(name, known) + "\n\n" + dataSummarySchema
	if err := e.agent.Run(ctx, prompt, &d); err != nil {
		return model.DataSummary{}, err
	}

	if d.Available && d.Summary == "" {
		return model.DataSummary{}, agent.NewError(agent.KindSchema,
			eris.Errorf("question %s: available result with empty summary", q.Key))
	}
	if !d.Available {
		d.Summary = ""
		d.Sources = nil
	}
	return d, nil
}

func (e *Enricher) question(key string) (questions.Question, bool) {
	for _, q := range e.questions {
		if q.Key == key {
			return q, true
		}
	}
	return questions.Question{}, false
}
