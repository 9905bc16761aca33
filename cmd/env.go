package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/supplytrace/esg-cli/internal/agent"
	"github.com/supplytrace/esg-cli/internal/enrich"
	"github.com/supplytrace/esg-cli/internal/questions"
	"github.com/supplytrace/esg-cli/internal/store"
	"github.com/supplytrace/esg-cli/internal/task"
	"github.com/supplytrace/esg-cli/pkg/anthropic"
)

// env holds the initialized store, enricher, and orchestrator shared by the
// serve/task/enrich commands. Constructed explicitly and closed by the
// caller; there is no process-global database handle.
type env struct {
	Store        store.Store
	Enricher     *enrich.Enricher
	Orchestrator *task.Orchestrator
}

// Close releases resources held by the environment.
func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "esg.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("postgres driver requires store.database_url (ESG_STORE_DATABASE_URL)")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// newStoreOnlyOrchestrator builds an orchestrator for commands that only
// touch task state and never invoke the research agent.
func newStoreOnlyOrchestrator(st store.Store) *task.Orchestrator {
	return task.New(st, nil)
}

// initEnv sets up the store, research agent, question set, and orchestrator.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*env, error) {
	if err := cfg.Validate("enrichment"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	qs, err := questions.LoadWithOverrides(cfg.Questions.OverridePath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	client := anthropic.NewClient(cfg.Anthropic.Key)
	researchAgent := agent.NewClaude(client, agent.Config{
		Model:          cfg.Anthropic.Model,
		MaxTokens:      cfg.Agent.MaxTokens,
		Timeout:        time.Duration(cfg.Agent.TimeoutSecs) * time.Second,
		MaxRetries:     cfg.Agent.MaxRetries,
		RequestsPerSec: cfg.Agent.RequestsPerSec,
	})

	enricher := enrich.New(researchAgent, qs)

	zap.L().Info("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("model", cfg.Anthropic.Model),
		zap.Int("questions", len(qs)),
	)

	return &env{
		Store:        st,
		Enricher:     enricher,
		Orchestrator: task.New(st, enricher),
	}, nil
}
