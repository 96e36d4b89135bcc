package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common"
	"github.com/hirewatch/scraper-http-service/common/browser"
	"github.com/hirewatch/scraper-http-service/common/config"
	"github.com/hirewatch/scraper-http-service/common/constants"
	"github.com/hirewatch/scraper-http-service/common/messaging"
	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/common/services"
	"github.com/hirewatch/scraper-http-service/common/work"
)

// Deps bundles the collaborators a scheduled run needs.
type Deps struct {
	Targets services.TargetService
	Jobs    services.JobService
	RunLogs services.RunLogService
	Browser *browser.Manager
	Locks   *work.WorkManager
}

// Scheduler re-runs stored scraping configurations on a fixed interval and
// on demand via the run topic. Runs flow through a worker pool so concurrent
// targets stay bounded.
type Scheduler struct {
	cfg    config.Config
	deps   Deps
	cron   *cron.Cron
	pool   *work.Pool[RunOutcome]
	cancel context.CancelFunc
}

func New(cfg config.Config, deps Deps) (*Scheduler, error) {
	workers := int(cfg.Scheduler.MaxConcurrent)
	if workers <= 0 {
		workers = 1
	}

	pool, err := work.NewWorkerPoolWithConfig[RunOutcome](work.PoolConfig{
		NumWorkers:      workers,
		TaskChannelSize: workers * 8,
		ResultChanSize:  workers * 8,
		TaskTimeout:     time.Duration(cfg.Scheduler.RunTimeoutMins) * time.Minute,
		ShutdownTimeout: 15 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cfg:  cfg,
		deps: deps,
		cron: cron.New(),
		pool: pool,
	}, nil
}

// Start launches the pool, the result drain, and the cron entry. The first
// sweep fires immediately rather than waiting a full interval.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.pool.Start(ctx, "scheduled-scrapes")
	go s.drainResults(ctx)

	if !s.cfg.Scheduler.Enabled {
		log.Info().Msg("Scheduler disabled, runs trigger on demand only")
		return nil
	}

	spec := fmt.Sprintf("@every %dh", s.cfg.Scheduler.IntervalHours)
	if _, err := s.cron.AddFunc(spec, func() { s.EnqueueAll(ctx) }); err != nil {
		return fmt.Errorf("registering schedule %q: %w", spec, err)
	}
	s.cron.Start()

	go s.EnqueueAll(ctx)

	log.Info().
		Str("schedule", spec).
		Uint("maxConcurrent", s.cfg.Scheduler.MaxConcurrent).
		Msg("Scheduler started")
	return nil
}

// Stop halts the cron entry and drains the pool.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.pool.Stop()
}

// BindBroker subscribes to the run topic so API-triggered runs reach the
// pool. A queue group keeps each message with one instance.
func (s *Scheduler) BindBroker(broker *messaging.NatsBroker) error {
	_, err := broker.QueueSubscribe(constants.ScraperRunTopic, "scrapers", func(msg *nats.Msg) {
		var req messaging.RunRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Warn().Err(err).Msg("Malformed run message, dropping")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		switch req.Type {
		case constants.RunScraperAction:
			if err := s.EnqueueTarget(ctx, req.TargetID); err != nil {
				log.Error().Err(err).Str("targetId", req.TargetID).Msg("Failed to enqueue requested run")
			}
		case constants.RunAllScrapersAction:
			s.EnqueueAll(ctx)
		default:
			log.Warn().Str("type", string(req.Type)).Msg("Unknown run action, dropping")
		}
	})
	return err
}

// EnqueueAll queues a run for every active target.
func (s *Scheduler) EnqueueAll(ctx context.Context) {
	targets, err := s.deps.Targets.GetActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load active targets for sweep")
		return
	}

	queued := 0
	for _, target := range targets {
		if err := s.enqueue(ctx, target); err != nil {
			log.Warn().Err(err).Str("target", target.Name).Msg("Failed to queue scheduled run")
			continue
		}
		queued++
	}

	log.Info().Int("queued", queued).Int("active", len(targets)).Msg("Scheduled sweep queued")
}

// EnqueueTarget queues a run for one target by id.
func (s *Scheduler) EnqueueTarget(ctx context.Context, targetID string) error {
	target, err := s.deps.Targets.GetByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrTargetNotFound, targetID)
	}
	if !target.CareerPageURL.Valid || target.Config.JobContainerSelector == "" {
		return fmt.Errorf("%w: target %s has no stored configuration", common.ErrInvalidConfig, target.Name)
	}
	return s.enqueue(ctx, target)
}

func (s *Scheduler) enqueue(ctx context.Context, target models.Target) error {
	run := &scrapeRun{
		target:  target,
		tuning:  s.cfg.Scraper,
		browser: s.deps.Browser,
		targets: s.deps.Targets,
		jobs:    s.deps.Jobs,
		runLogs: s.deps.RunLogs,
		locks:   s.deps.Locks,
	}

	task, err := work.NewTask(run.run,
		work.WithID[RunOutcome](run.lockKey()),
		work.WithTimeout[RunOutcome](time.Duration(s.cfg.Scheduler.RunTimeoutMins)*time.Minute),
		work.WithErrorHandler[RunOutcome](func(err error) {
			log.Error().Err(err).Str("target", target.Name).Msg("Scheduled run failed")
		}),
	)
	if err != nil {
		return err
	}
	return s.pool.AddTask(ctx, task)
}

func (s *Scheduler) drainResults(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-s.pool.Results():
			if !ok {
				return
			}
			if result.Error != nil {
				continue
			}
			log.Debug().
				Str("taskId", result.TaskID).
				Dur("duration", result.Duration).
				Int("added", result.Result.Added).
				Msg("Run result drained")
		}
	}
}
