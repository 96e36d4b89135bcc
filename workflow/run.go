package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common"
	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/navigator"
	"github.com/hirewatch/scraper-http-service/oracle"
	"github.com/hirewatch/scraper-http-service/progress"
	"github.com/hirewatch/scraper-http-service/scraper"
	"github.com/hirewatch/scraper-http-service/search"
)

// Run is one in-flight or retained scraper-building workflow
type Run struct {
	Log *progress.Log

	mu     sync.Mutex
	wf     models.Workflow
	cancel context.CancelFunc
}

// Snapshot returns a copy of the workflow's current state
func (r *Run) Snapshot() models.Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wf
}

func (r *Run) setStage(stage models.WorkflowStage) {
	r.mu.Lock()
	r.wf.Stage = stage
	r.wf.UpdatedAt = time.Now().UTC()
	r.mu.Unlock()
}

func (r *Run) finish(status models.WorkflowStatus, jobsFound int, err error) {
	r.mu.Lock()
	r.wf.Stage = models.StageComplete
	r.wf.Status = status
	r.wf.JobsFound = jobsFound
	if err != nil {
		r.wf.Error = err.Error()
	}
	r.wf.UpdatedAt = time.Now().UTC()
	r.mu.Unlock()
}

// Cancel aborts the workflow's execution
func (r *Run) Cancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// execute drives one workflow through its stages. It owns the browser
// session and the per-workflow oracle client; the oracle key never leaves
// this call chain.
func (m *Manager) execute(run *Run, target models.Target, oracleKey string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run.mu.Lock()
	run.cancel = cancel
	run.mu.Unlock()

	wf := run.Snapshot()
	plog := run.Log

	oracleClient := oracle.NewClient(m.cfg.Oracle, oracleKey)
	artifacts := NewArtifacts(m.deps.Storage, m.cfg.GCS.Bucket, wf.ID)

	jobsFound, err := m.runPipeline(ctx, run, target, oracleClient, artifacts)
	if err != nil {
		log.Error().Err(err).Str("workflowID", wf.ID).Str("target", target.Name).Msg("Workflow failed")
		run.finish(models.WorkflowStatusError, jobsFound, err)
		plog.Finish(models.WorkflowStatusError, "Workflow failed", err)
		m.retire(wf.ID)
		return
	}

	log.Info().
		Str("workflowID", wf.ID).
		Str("target", target.Name).
		Int("jobs", jobsFound).
		Int("artifacts", len(artifacts.Saved())).
		Msg("Workflow complete")
	run.finish(models.WorkflowStatusSuccess, jobsFound, nil)
	plog.Finish(models.WorkflowStatusSuccess, fmt.Sprintf("Stored %d job records", jobsFound), nil)
	m.retire(wf.ID)
}

func (m *Manager) runPipeline(ctx context.Context, run *Run, target models.Target, oracleClient *oracle.Client, artifacts *Artifacts) (int, error) {
	plog := run.Log

	// The discovery stages run under a hard wall-clock ceiling. Generation
	// and storage continue under the parent context once a configuration
	// has been accepted.
	ceiling := time.Duration(m.cfg.Scraper.WorkflowTimeoutMins) * time.Minute
	if ceiling <= 0 {
		ceiling = 10 * time.Minute
	}
	stagedCtx, stagedCancel := context.WithTimeout(ctx, ceiling)
	defer stagedCancel()

	// SEARCHING
	run.setStage(models.StageSearching)
	candidates, err := m.locateStartCandidates(stagedCtx, target, oracleClient, plog)
	if err != nil {
		return 0, stageError(stagedCtx, err)
	}

	// ANALYZING
	run.setStage(models.StageAnalyzing)
	plog.Step(models.StageAnalyzing, "Starting browser session", candidates[0])

	driver, err := m.deps.Browser.NewSession(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrRuntimeFailure, err)
	}
	defer func() {
		if err := driver.Close(); err != nil {
			log.Debug().Err(err).Msg("Error closing browser session")
		}
	}()

	nav := navigator.New(driver, oracleClient, m.cfg.Scraper.HopBudget, plog, artifacts)
	board, err := nav.FindJobBoard(stagedCtx, candidates...)
	if err != nil {
		return 0, stageError(stagedCtx, err)
	}
	plog.Step(models.StageAnalyzing, "Job board located", board.URL)

	// VALIDATING
	run.setStage(models.StageValidating)
	runner := scraper.NewRunner(driver, m.cfg.Scraper)
	cfg, sampleJobs, err := SynthesizeConfig(stagedCtx, oracleClient, runner, target, board.URL, board.HTML, m.cfg.Scraper.MaxAttempts, plog)
	if err != nil {
		return 0, stageError(stagedCtx, err)
	}
	plog.Step(models.StageValidating, fmt.Sprintf("Configuration validated against %d sample records", len(sampleJobs)), board.URL)

	// GENERATING
	run.setStage(models.StageGenerating)
	plog.Step(models.StageGenerating, "Running full extraction", board.URL)

	target.Config = cfg
	known, err := m.deps.Jobs.KnownURLs(ctx, target.ID)
	if err != nil {
		log.Warn().Err(err).Str("target", target.Name).Msg("Failed to load known urls, duplicate guard starts cold")
	}

	result, err := runner.Run(ctx, target, board.URL, known)
	if err != nil {
		return 0, err
	}
	plog.Step(models.StageGenerating,
		fmt.Sprintf("Extracted %d records over %d pages (%s)", len(result.Jobs), result.Pages, result.Termination), board.URL)

	if _, err := artifacts.SaveConfig(ctx, cfg); err != nil {
		log.Warn().Err(err).Str("target", target.Name).Msg("Failed to store configuration artifact")
	}

	// STORING
	run.setStage(models.StageStoring)
	inserted, err := m.deps.Jobs.SaveBatch(ctx, target.ID, result.Jobs)
	if err != nil {
		return 0, fmt.Errorf("persisting job records: %w", err)
	}
	plog.Step(models.StageStoring,
		fmt.Sprintf("Stored %d new records (%d duplicates, %d errors)", inserted.Added, inserted.Duplicates, inserted.Errors), "")

	if err := m.deps.Targets.StoreConfig(ctx, target.ID, board.URL, cfg); err != nil {
		return inserted.Added, fmt.Errorf("persisting configuration: %w", err)
	}
	if err := m.deps.Targets.TouchRun(ctx, target.ID, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Str("target", target.Name).Msg("Failed to record run time")
	}
	if err := m.deps.RunLogs.Record(ctx, target.ID, inserted.Added, nil); err != nil {
		log.Warn().Err(err).Str("target", target.Name).Msg("Failed to write run log")
	}

	return inserted.Added, nil
}

// locateStartCandidates picks where navigation begins: the stored board URL
// when the target has one, otherwise every web search result with the
// oracle's pick first. Navigation falls through the list in that order, so a
// candidate that exhausts its links does not fail the workflow while others
// remain.
func (m *Manager) locateStartCandidates(ctx context.Context, target models.Target, oracleClient *oracle.Client, plog *progress.Log) ([]string, error) {
	if target.CareerPageURL.Valid && target.CareerPageURL.String != "" {
		plog.Step(models.StageSearching, "Using stored career page", target.CareerPageURL.String)
		return []string{target.CareerPageURL.String}, nil
	}

	query := search.JobBoardQuery(target.Name)
	plog.Step(models.StageSearching, fmt.Sprintf("Searching the web: %s", query), "")

	results, err := m.deps.Search.Search(ctx, query, 10)
	if err != nil {
		return nil, fmt.Errorf("searching for %s: %w", target.Name, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no search results for %s", common.ErrNavigationExhausted, target.Name)
	}

	ranked := make([]oracle.SearchResult, len(results))
	for i, r := range results {
		ranked[i] = oracle.SearchResult{Title: r.Title, URL: r.URL, Description: r.Description}
	}

	choice, err := oracleClient.Rank(ctx, target.Name, ranked)
	if err != nil {
		return nil, err
	}
	if choice < 1 || choice > len(results) {
		choice = 1
	}

	candidates := make([]string, 0, len(results))
	candidates = append(candidates, results[choice-1].URL)
	for i, r := range results {
		if i != choice-1 {
			candidates = append(candidates, r.URL)
		}
	}

	plog.Step(models.StageSearching, "Selected starting point", candidates[0])
	return candidates, nil
}

// stageError maps a deadline hit on the staged context to the workflow
// timeout error
func stageError(stagedCtx context.Context, err error) error {
	if errors.Is(stagedCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", common.ErrWorkflowTimeout, err)
	}
	return err
}
