package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common"
	"github.com/hirewatch/scraper-http-service/common/browser"
	"github.com/hirewatch/scraper-http-service/common/config"
	"github.com/hirewatch/scraper-http-service/common/messaging"
	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/common/services"
	"github.com/hirewatch/scraper-http-service/common/storage"
	"github.com/hirewatch/scraper-http-service/progress"
	"github.com/hirewatch/scraper-http-service/repository"
	"github.com/hirewatch/scraper-http-service/search"
)

// Deps are the collaborators a manager wires into every workflow
type Deps struct {
	Targets services.TargetService
	Jobs    services.JobService
	RunLogs services.RunLogService
	Browser *browser.Manager
	Search  *search.Client
	Broker  *messaging.NatsBroker
	Storage storage.StorageService
}

// StartParams describes a workflow creation request. The oracle key is used
// for this workflow only and is never persisted.
type StartParams struct {
	TargetName   string
	Keywords     []string
	OracleApiKey string
}

// Manager owns the registry of live and recently finished workflows. Each
// workflow runs on its own goroutine with its own browser session.
type Manager struct {
	cfg  config.Config
	deps Deps

	mu        sync.Mutex
	workflows map[string]*Run
	byTarget  map[string]string
}

// NewManager creates a workflow manager
func NewManager(cfg config.Config, deps Deps) *Manager {
	return &Manager{
		cfg:       cfg,
		deps:      deps,
		workflows: map[string]*Run{},
		byTarget:  map[string]string{},
	}
}

// Start creates a workflow for the named target and launches it. The target
// row is created on first sight. A target can have at most one workflow in
// flight.
func (m *Manager) Start(ctx context.Context, params StartParams) (models.Workflow, error) {
	target, err := m.resolveTarget(ctx, params)
	if err != nil {
		return models.Workflow{}, err
	}

	m.mu.Lock()
	if existingID, busy := m.byTarget[target.ID]; busy {
		if existing, ok := m.workflows[existingID]; ok && existing.Snapshot().Status == models.WorkflowStatusRunning {
			m.mu.Unlock()
			return models.Workflow{}, fmt.Errorf("%w: %s has workflow %s", common.ErrWorkflowConflict, target.Name, existingID)
		}
	}

	now := time.Now().UTC()
	wf := models.Workflow{
		ID:         uuid.New().String(),
		TargetName: target.Name,
		Stage:      models.StageQueued,
		Status:     models.WorkflowStatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	run := &Run{
		Log: progress.NewLog(wf.ID, target.Name, m.deps.Broker),
		wf:  wf,
	}
	m.workflows[wf.ID] = run
	m.byTarget[target.ID] = wf.ID
	m.mu.Unlock()

	run.Log.Step(models.StageQueued, "Workflow queued", "")
	log.Info().Str("workflowID", wf.ID).Str("target", target.Name).Msg("Workflow started")

	go m.execute(run, target, params.OracleApiKey)

	return wf, nil
}

// Get returns the run for a workflow id
func (m *Manager) Get(id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.workflows[id]
	if !ok {
		return nil, common.ErrWorkflowNotFound
	}
	return run, nil
}

// List returns a snapshot of every retained workflow
func (m *Manager) List() []models.Workflow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Workflow, 0, len(m.workflows))
	for _, run := range m.workflows {
		out = append(out, run.Snapshot())
	}
	return out
}

// Shutdown cancels every in-flight workflow
func (m *Manager) Shutdown() {
	m.mu.Lock()
	runs := make([]*Run, 0, len(m.workflows))
	for _, run := range m.workflows {
		runs = append(runs, run)
	}
	m.mu.Unlock()

	for _, run := range runs {
		run.Cancel()
	}
}

// retire schedules a finished workflow's removal from the registry after the
// retention window, so late subscribers can still replay its log.
func (m *Manager) retire(id string) {
	retention := time.Duration(m.cfg.Scraper.RetentionMins) * time.Minute
	if retention <= 0 {
		retention = time.Hour
	}

	time.AfterFunc(retention, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if run, ok := m.workflows[id]; ok {
			delete(m.workflows, id)
			snapshot := run.Snapshot()
			for targetID, wfID := range m.byTarget {
				if wfID == id {
					delete(m.byTarget, targetID)
				}
			}
			log.Debug().Str("workflowID", id).Str("target", snapshot.TargetName).Msg("Workflow retired")
		}
	})
}

// resolveTarget loads the named target, creating it on first sight
func (m *Manager) resolveTarget(ctx context.Context, params StartParams) (models.Target, error) {
	target, err := m.deps.Targets.GetByName(ctx, params.TargetName)
	if err == nil {
		if len(params.Keywords) > 0 {
			target.Keywords = params.Keywords
		}
		return target, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Target{}, fmt.Errorf("loading target %s: %w", params.TargetName, err)
	}

	return m.deps.Targets.Create(ctx, repository.CreateTargetParams{
		ID:            uuid.New().String(),
		Name:          params.TargetName,
		CareerPageURL: pgtype.Text{},
		Keywords:      params.Keywords,
		Config:        models.ScrapingConfiguration{},
		Status:        models.TargetStatusPending,
	})
}
