package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common"
	"github.com/hirewatch/scraper-http-service/common/browser"
	"github.com/hirewatch/scraper-http-service/common/config"
	"github.com/hirewatch/scraper-http-service/common/models"
)

// Result is the outcome of running a configuration against a board
type Result struct {
	Jobs        []models.JobRecord
	Pages       int
	Termination TerminationReason
}

// Runner interprets a scraping configuration against a live page
type Runner struct {
	driver browser.PageDriver
	tuning config.ScraperConfig
}

// NewRunner creates a runner bound to one browser session
func NewRunner(driver browser.PageDriver, tuning config.ScraperConfig) *Runner {
	return &Runner{
		driver: driver,
		tuning: tuning,
	}
}

// Sample extracts the first page only, without pagination. Used to evaluate a
// candidate configuration before it is accepted. The second return is the raw
// count of container matches before keyword filtering, so a caller can tell
// selector drift apart from keyword non-matches.
func (r *Runner) Sample(ctx context.Context, target models.Target, boardURL string) ([]models.JobRecord, int, error) {
	if err := target.Config.Validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	if err := r.openBoard(ctx, target, boardURL); err != nil {
		return nil, 0, err
	}

	pageHTML, err := r.driver.HTML(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading page: %v", common.ErrRuntimeFailure, err)
	}

	return ExtractJobs(pageHTML, boardURL, target.ID, target.Config, target.Keywords)
}

// Run scrapes the whole board: first page plus pagination until a
// termination condition trips. known seeds the duplicate guard with urls
// already persisted for the target.
func (r *Runner) Run(ctx context.Context, target models.Target, boardURL string, known []string) (Result, error) {
	if err := target.Config.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	if err := r.openBoard(ctx, target, boardURL); err != nil {
		return Result{}, err
	}

	knownSet := make(map[string]bool, len(known))
	for _, u := range known {
		knownSet[u] = true
	}

	var result Result
	seen := map[string]bool{}

	for {
		result.Pages++

		pageHTML, err := r.driver.HTML(ctx)
		if err != nil {
			return result, fmt.Errorf("%w: reading page %d: %v", common.ErrRuntimeFailure, result.Pages, err)
		}

		jobs, raw, err := ExtractJobs(pageHTML, r.driver.CurrentURL(), target.ID, target.Config, target.Keywords)
		if err != nil {
			return result, fmt.Errorf("%w: extracting page %d: %v", common.ErrRuntimeFailure, result.Pages, err)
		}

		// A page empties out when the container selector stops matching, not
		// when the keyword filter drops every posting on it.
		if raw == 0 {
			result.Termination = TerminationEmptyPage
			return result, nil
		}

		pageURLs := make([]string, 0, len(jobs))
		for _, j := range jobs {
			pageURLs = append(pageURLs, j.URL)
		}
		ratio := DuplicateRatio(pageURLs, knownSet)

		for _, j := range jobs {
			if seen[j.URL] || knownSet[j.URL] {
				continue
			}
			seen[j.URL] = true
			knownSet[j.URL] = true
			result.Jobs = append(result.Jobs, j)
		}

		if ratio >= r.tuning.DuplicateThreshold {
			log.Info().Str("target", target.Name).Float64("ratio", ratio).Msg("Duplicate guard tripped, stopping pagination")
			result.Termination = TerminationDuplicates
			return result, nil
		}

		if target.Config.PaginationSelector == "" {
			result.Termination = TerminationSinglePage
			return result, nil
		}

		state, err := InspectPagination(pageHTML, target.Config.PaginationSelector)
		if err != nil {
			return result, fmt.Errorf("%w: inspecting pagination: %v", common.ErrRuntimeFailure, err)
		}
		if !state.Present {
			result.Termination = TerminationNoControl
			return result, nil
		}
		if state.Disabled {
			result.Termination = TerminationControlDisabled
			return result, nil
		}

		if uint(result.Pages) >= r.tuning.MaxPages {
			result.Termination = TerminationPageLimit
			return result, nil
		}

		timedOut, err := r.nextPage(ctx, target.Config)
		if timedOut {
			result.Termination = TerminationPageTimeout
			return result, nil
		}
		if err != nil {
			return result, err
		}
	}
}

// openBoard navigates to the board and performs the configured search
// interaction before the first extraction.
func (r *Runner) openBoard(ctx context.Context, target models.Target, boardURL string) error {
	pageCtx, cancel := r.pageContext(ctx)
	defer cancel()

	if err := r.driver.Open(pageCtx, boardURL); err != nil {
		return fmt.Errorf("%w: opening %s: %v", common.ErrRuntimeFailure, boardURL, err)
	}

	DismissOverlays(pageCtx, r.driver)

	switch target.Config.SearchMode() {
	case models.SearchModeButton:
		if err := r.driver.Click(pageCtx, target.Config.SearchButtonSelector); err != nil {
			return fmt.Errorf("%w: clicking search button: %v", common.ErrRuntimeFailure, err)
		}
		_ = r.driver.WaitStable(pageCtx, time.Second)
	case models.SearchModeQuery:
		if err := r.driver.Fill(pageCtx, target.Config.SearchInputSelector, target.Config.SearchQuery); err != nil {
			return fmt.Errorf("%w: filling search input: %v", common.ErrRuntimeFailure, err)
		}
		if err := r.driver.Submit(pageCtx, target.Config.SearchInputSelector); err != nil {
			return fmt.Errorf("%w: submitting search: %v", common.ErrRuntimeFailure, err)
		}
		_ = r.driver.WaitStable(pageCtx, time.Second)
	}

	r.settleDynamic(pageCtx, target.Config)
	return nil
}

// nextPage clicks the pagination control. A deadline hit is reported as a
// timeout, not an error, so the run keeps what it has.
func (r *Runner) nextPage(ctx context.Context, cfg models.ScrapingConfiguration) (timedOut bool, err error) {
	pageCtx, cancel := r.pageContext(ctx)
	defer cancel()

	if err := r.driver.Click(pageCtx, cfg.PaginationSelector); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return true, nil
		}
		return false, fmt.Errorf("%w: clicking next page: %v", common.ErrRuntimeFailure, err)
	}

	if err := r.driver.WaitStable(pageCtx, time.Second); err != nil && errors.Is(err, context.DeadlineExceeded) {
		return true, nil
	}

	DismissOverlays(pageCtx, r.driver)
	r.settleDynamic(pageCtx, cfg)
	return false, nil
}

func (r *Runner) settleDynamic(ctx context.Context, cfg models.ScrapingConfiguration) {
	if !cfg.HasDynamicLoading {
		return
	}
	if err := r.driver.Eval(ctx, scrollToBottomJS); err != nil {
		log.Debug().Err(err).Msg("Scroll script failed")
		return
	}
	_ = r.driver.WaitStable(ctx, time.Second)
}

func (r *Runner) pageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(r.tuning.PageTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
