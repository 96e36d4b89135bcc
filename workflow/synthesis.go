package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common"
	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/progress"
)

// Synthesizer is the oracle's configuration surface
type Synthesizer interface {
	Synthesize(ctx context.Context, pageHTML string, feedback string) (models.ScrapingConfiguration, error)
}

// Sampler executes a candidate configuration against the live board and
// returns the records its first page yields, plus the raw container-match
// count before keyword filtering
type Sampler interface {
	Sample(ctx context.Context, target models.Target, boardURL string) ([]models.JobRecord, int, error)
}

// SynthesizeConfig drives the synthesize-execute-evaluate loop: ask the
// oracle for a configuration, run it against the board's first page, and
// accept it once it extracts at least one record. Failures feed the next
// attempt. The loop spends at most maxAttempts attempts before giving up
// with common.ErrExtractionFailure.
func SynthesizeConfig(ctx context.Context, synth Synthesizer, sampler Sampler, target models.Target, boardURL, boardHTML string, maxAttempts uint, progressLog *progress.Log) (models.ScrapingConfiguration, []models.JobRecord, error) {
	if maxAttempts == 0 {
		maxAttempts = 3
	}

	feedback := ""
	var lastErr error

	for attempt := uint(1); attempt <= maxAttempts; attempt++ {
		if progressLog != nil {
			progressLog.Step(models.StageValidating,
				fmt.Sprintf("Synthesizing configuration (attempt %d of %d)", attempt, maxAttempts), boardURL)
		}

		cfg, err := synth.Synthesize(ctx, boardHTML, feedback)
		if err != nil {
			if errors.Is(err, common.ErrSynthesisRejected) {
				lastErr = err
				feedback = "the previous response was not a valid configuration object"
				log.Warn().Err(err).Uint("attempt", attempt).Str("target", target.Name).Msg("Synthesis rejected")
				continue
			}
			return models.ScrapingConfiguration{}, nil, err
		}

		candidate := target
		candidate.Config = cfg

		jobs, raw, err := sampler.Sample(ctx, candidate, boardURL)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return models.ScrapingConfiguration{}, nil, err
			}
			lastErr = err
			feedback = fmt.Sprintf("executing the configuration failed: %v", err)
			log.Warn().Err(err).Uint("attempt", attempt).Str("target", target.Name).Msg("Sample run failed")
			continue
		}

		if raw == 0 {
			lastErr = common.ErrExtractionFailure
			feedback = fmt.Sprintf("the selectors matched nothing: %q extracted 0 job records", cfg.JobContainerSelector)
			log.Warn().Uint("attempt", attempt).Str("target", target.Name).Msg("Configuration extracted no records")
			continue
		}

		// Keyword misses are not a selector problem. The configuration proved
		// it can read the board, so it is accepted even when the filter
		// dropped every sample posting.
		if len(jobs) == 0 {
			log.Info().Uint("attempt", attempt).Int("raw", raw).Str("target", target.Name).Msg("Configuration accepted, keywords filtered all sample records")
			return cfg, jobs, nil
		}

		log.Info().Uint("attempt", attempt).Int("jobs", len(jobs)).Str("target", target.Name).Msg("Configuration accepted")
		return cfg, jobs, nil
	}

	if lastErr == nil {
		lastErr = common.ErrExtractionFailure
	}
	return models.ScrapingConfiguration{}, nil, fmt.Errorf("%w: %d attempts exhausted: %v", common.ErrExtractionFailure, maxAttempts, lastErr)
}
