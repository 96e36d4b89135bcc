package navigator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common"
	"github.com/hirewatch/scraper-http-service/common/browser"
	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/common/normalizer"
	"github.com/hirewatch/scraper-http-service/oracle"
	"github.com/hirewatch/scraper-http-service/progress"
)

// Lexemes that mark a link as potentially leading to job listings
var jobLexemes = []string{"job", "intern", "oppor", "career", "vacan", "position", "recruit", "hiring"}

// Decider is the oracle's navigation surface
type Decider interface {
	Navigate(ctx context.Context, doc normalizer.Document, candidates []normalizer.Link) (oracle.NavDecision, error)
}

// ArtifactStore persists hop screenshots and returns an addressable name
type ArtifactStore interface {
	SaveScreenshot(ctx context.Context, label string, png []byte) (string, error)
}

// Board is a located job listings page
type Board struct {
	URL  string
	HTML string
}

// Navigator walks a site from a landing page to its job board, spending at
// most budget page loads and consulting the oracle at every hop.
type Navigator struct {
	driver    browser.PageDriver
	decider   Decider
	budget    uint
	progress  *progress.Log
	artifacts ArtifactStore
}

// New creates a navigator. progress and artifacts may be nil.
func New(driver browser.PageDriver, decider Decider, budget uint, progressLog *progress.Log, artifacts ArtifactStore) *Navigator {
	if budget == 0 {
		budget = 5
	}
	return &Navigator{
		driver:    driver,
		decider:   decider,
		budget:    budget,
		progress:  progressLog,
		artifacts: artifacts,
	}
}

// FindJobBoard walks the start candidates in rank order, following oracle
// decisions until it lands on a page the oracle accepts as the job board.
// Rejected branches backtrack through the remaining links, and a start
// candidate that dead-ends falls through to the next one. Returns
// common.ErrNavigationExhausted when the hop budget runs out or every
// candidate is spent.
func (n *Navigator) FindJobBoard(ctx context.Context, startURLs ...string) (Board, error) {
	frontier := append([]string(nil), startURLs...)
	visited := map[string]bool{}
	hops := uint(0)

	for len(frontier) > 0 {
		if hops >= n.budget {
			return Board{}, fmt.Errorf("%w: %d hops spent", common.ErrNavigationExhausted, hops)
		}

		current := frontier[0]
		frontier = frontier[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		hops++

		board, next, err := n.visit(ctx, current, hops, visited)
		if err != nil {
			if isOracleFailure(err) {
				return Board{}, err
			}
			log.Warn().Err(err).Str("url", current).Msg("Hop failed, backtracking")
			continue
		}
		if board != nil {
			return *board, nil
		}

		// Chosen link jumps the queue, the rest stays for backtracking
		frontier = append(next, frontier...)
	}

	return Board{}, common.ErrNavigationExhausted
}

// visit loads one page and asks the oracle for a verdict. It returns a board
// when the oracle says STAY, otherwise the candidates to enqueue.
func (n *Navigator) visit(ctx context.Context, pageURL string, hop uint, visited map[string]bool) (*Board, []string, error) {
	if err := n.driver.Open(ctx, pageURL); err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", pageURL, err)
	}

	pageHTML, err := n.driver.HTML(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", pageURL, err)
	}

	currentURL := n.driver.CurrentURL()
	if currentURL == "" {
		currentURL = pageURL
	}

	doc, err := normalizer.Normalize(pageHTML, currentURL)
	if err != nil {
		return nil, nil, fmt.Errorf("normalizing %s: %w", pageURL, err)
	}

	n.record(ctx, hop, currentURL)

	candidates := filterJobLinks(doc.Links, visited)
	decision, err := n.decider.Navigate(ctx, doc, candidates)
	if err != nil {
		return nil, nil, err
	}

	if decision.Stay {
		log.Info().Str("url", currentURL).Uint("hop", hop).Msg("Job board located")
		return &Board{URL: currentURL, HTML: pageHTML}, nil, nil
	}

	if decision.Choice < 1 || decision.Choice > len(candidates) {
		log.Info().Str("url", currentURL).Uint("hop", hop).Msg("No promising link on page, backtracking")
		return nil, nil, nil
	}

	chosen := candidates[decision.Choice-1]
	rest := make([]string, 0, len(candidates))
	rest = append(rest, chosen.URL)
	for i, c := range candidates {
		if i != decision.Choice-1 {
			rest = append(rest, c.URL)
		}
	}
	return nil, rest, nil
}

// record emits a hop progress event, attaching a screenshot when a store is
// available.
func (n *Navigator) record(ctx context.Context, hop uint, pageURL string) {
	if n.progress == nil {
		return
	}

	message := fmt.Sprintf("Exploring page (hop %d)", hop)
	if n.artifacts == nil {
		n.progress.Step(models.StageAnalyzing, message, pageURL)
		return
	}

	png, err := n.driver.Screenshot(ctx)
	if err != nil {
		log.Debug().Err(err).Str("url", pageURL).Msg("Screenshot failed")
		n.progress.Step(models.StageAnalyzing, message, pageURL)
		return
	}

	image, err := n.artifacts.SaveScreenshot(ctx, fmt.Sprintf("hop-%d", hop), png)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to store hop screenshot")
		n.progress.Step(models.StageAnalyzing, message, pageURL)
		return
	}
	n.progress.Shot(models.StageAnalyzing, message, pageURL, image)
}

// filterJobLinks keeps links whose text or url carries a job lexeme and that
// have not been visited yet.
func filterJobLinks(links []normalizer.Link, visited map[string]bool) []normalizer.Link {
	var out []normalizer.Link
	for _, l := range links {
		if visited[l.URL] {
			continue
		}
		haystack := strings.ToLower(l.Text + " " + l.URL)
		for _, lex := range jobLexemes {
			if strings.Contains(haystack, lex) {
				out = append(out, l)
				break
			}
		}
	}
	return out
}

// isOracleFailure separates abort-the-workflow errors from hop-local ones
func isOracleFailure(err error) bool {
	return errors.Is(err, common.ErrOracleUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
