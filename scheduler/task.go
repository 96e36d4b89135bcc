package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common/browser"
	"github.com/hirewatch/scraper-http-service/common/config"
	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/common/services"
	"github.com/hirewatch/scraper-http-service/common/work"
	"github.com/hirewatch/scraper-http-service/scraper"
)

// RunOutcome summarizes one scheduled execution of a stored configuration
type RunOutcome struct {
	TargetName  string
	Added       int
	Pages       int
	Termination scraper.TerminationReason
}

// scrapeRun executes one target's stored configuration. The scheduler wraps
// it in a pool task keyed "scrape:<name>", which doubles as the Redis lock
// key for per-target isolation.
type scrapeRun struct {
	target models.Target
	tuning config.ScraperConfig

	browser *browser.Manager
	targets services.TargetService
	jobs    services.JobService
	runLogs services.RunLogService
	locks   *work.WorkManager
}

func (t *scrapeRun) lockKey() string {
	return "scrape:" + t.target.Name
}

func (t *scrapeRun) run(ctx context.Context) (RunOutcome, error) {
	outcome := RunOutcome{TargetName: t.target.Name}

	if t.locks != nil {
		if err := t.locks.Start(ctx, t.lockKey()); err != nil {
			log.Info().Str("target", t.target.Name).Msg("Run already in flight, skipping")
			return outcome, nil
		}
		defer func() {
			if err := t.locks.Complete(context.WithoutCancel(ctx), t.lockKey()); err != nil {
				log.Warn().Err(err).Str("target", t.target.Name).Msg("Failed to release run lock")
			}
		}()
	}

	if !t.target.CareerPageURL.Valid || t.target.CareerPageURL.String == "" {
		return outcome, fmt.Errorf("target %s has no stored board url", t.target.Name)
	}

	driver, err := t.browser.NewSession(ctx)
	if err != nil {
		t.recordFailure(ctx, err)
		return outcome, err
	}
	defer func() {
		if err := driver.Close(); err != nil {
			log.Debug().Err(err).Str("target", t.target.Name).Msg("Error closing browser session")
		}
	}()

	known, err := t.jobs.KnownURLs(ctx, t.target.ID)
	if err != nil {
		log.Warn().Err(err).Str("target", t.target.Name).Msg("Failed to load known urls, duplicate guard starts cold")
	}

	runner := scraper.NewRunner(driver, t.tuning)
	result, err := runner.Run(ctx, t.target, t.target.CareerPageURL.String, known)
	if err != nil {
		t.recordFailure(ctx, err)
		return outcome, err
	}

	inserted, err := t.jobs.SaveBatch(ctx, t.target.ID, result.Jobs)
	if err != nil {
		t.recordFailure(ctx, err)
		return outcome, err
	}

	outcome.Added = inserted.Added
	outcome.Pages = result.Pages
	outcome.Termination = result.Termination

	if err := t.runLogs.Record(ctx, t.target.ID, inserted.Added, nil); err != nil {
		log.Warn().Err(err).Str("target", t.target.Name).Msg("Failed to write run log")
	}
	if err := t.targets.TouchRun(ctx, t.target.ID, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Str("target", t.target.Name).Msg("Failed to record run time")
	}
	if t.target.Status == models.TargetStatusBroken {
		if err := t.targets.UpdateStatus(ctx, t.target.ID, models.TargetStatusActive); err != nil {
			log.Warn().Err(err).Str("target", t.target.Name).Msg("Failed to restore target status")
		}
	}

	log.Info().
		Str("target", t.target.Name).
		Int("added", inserted.Added).
		Int("duplicates", inserted.Duplicates).
		Int("pages", result.Pages).
		Str("termination", string(result.Termination)).
		Msg("Scheduled run complete")

	return outcome, nil
}

// recordFailure logs the run and marks the target broken. The write uses a
// detached context so it survives the run's own cancellation.
func (t *scrapeRun) recordFailure(ctx context.Context, runErr error) {
	detached := context.WithoutCancel(ctx)

	if err := t.runLogs.Record(detached, t.target.ID, 0, runErr); err != nil {
		log.Warn().Err(err).Str("target", t.target.Name).Msg("Failed to write run log")
	}
	if err := t.targets.UpdateStatus(detached, t.target.ID, models.TargetStatusBroken); err != nil {
		log.Warn().Err(err).Str("target", t.target.Name).Msg("Failed to mark target broken")
	}
}
