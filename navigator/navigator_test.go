package navigator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hirewatch/scraper-http-service/common"
	"github.com/hirewatch/scraper-http-service/common/normalizer"
	"github.com/hirewatch/scraper-http-service/oracle"
)

// siteDriver serves a static map of url to HTML
type siteDriver struct {
	pages   map[string]string
	current string
	opened  []string
}

func (d *siteDriver) Open(ctx context.Context, url string) error {
	if _, ok := d.pages[url]; !ok {
		return fmt.Errorf("no such page %s", url)
	}
	d.current = url
	d.opened = append(d.opened, url)
	return nil
}

func (d *siteDriver) HTML(ctx context.Context) (string, error) {
	return d.pages[d.current], nil
}

func (d *siteDriver) CurrentURL() string { return d.current }

func (d *siteDriver) Click(ctx context.Context, selector string) error { return nil }

func (d *siteDriver) Fill(ctx context.Context, selector, text string) error { return nil }

func (d *siteDriver) Submit(ctx context.Context, selector string) error { return nil }

func (d *siteDriver) Eval(ctx context.Context, js string) error { return nil }

func (d *siteDriver) Screenshot(ctx context.Context) ([]byte, error) { return []byte("png"), nil }

func (d *siteDriver) WaitStable(ctx context.Context, dur time.Duration) error { return nil }

func (d *siteDriver) Close() error { return nil }

// scriptedDecider replays a fixed sequence of oracle decisions
type scriptedDecider struct {
	decisions []oracle.NavDecision
	errs      []error
	calls     int
}

func (s *scriptedDecider) Navigate(ctx context.Context, doc normalizer.Document, candidates []normalizer.Link) (oracle.NavDecision, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return oracle.NavDecision{}, s.errs[i]
	}
	if i < len(s.decisions) {
		return s.decisions[i], nil
	}
	return oracle.NavDecision{}, fmt.Errorf("unexpected decision call %d", i)
}

func page(links ...string) string {
	body := "<html><body><main>"
	for _, l := range links {
		body += fmt.Sprintf(`<a href="%s">%s</a>`, l, l)
	}
	body += "</main></body></html>"
	return body
}

func TestFindJobBoardStayOnFirstPage(t *testing.T) {
	driver := &siteDriver{pages: map[string]string{
		"https://example.com/careers": page(),
	}}
	decider := &scriptedDecider{decisions: []oracle.NavDecision{{Stay: true}}}

	nav := New(driver, decider, 5, nil, nil)
	board, err := nav.FindJobBoard(context.Background(), "https://example.com/careers")
	if err != nil {
		t.Fatal(err)
	}
	if board.URL != "https://example.com/careers" {
		t.Errorf("Expected board at start url, got %q", board.URL)
	}
}

func TestFindJobBoardFollowsChoice(t *testing.T) {
	driver := &siteDriver{pages: map[string]string{
		"https://example.com":                  page("https://example.com/careers", "https://example.com/about"),
		"https://example.com/careers":          page("https://example.com/careers/openings"),
		"https://example.com/careers/openings": page(),
	}}
	decider := &scriptedDecider{decisions: []oracle.NavDecision{
		{Choice: 1},
		{Choice: 1},
		{Stay: true},
	}}

	nav := New(driver, decider, 5, nil, nil)
	board, err := nav.FindJobBoard(context.Background(), "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if board.URL != "https://example.com/careers/openings" {
		t.Errorf("Expected deep board page, got %q", board.URL)
	}
	if len(driver.opened) != 3 {
		t.Errorf("Expected 3 page loads, got %v", driver.opened)
	}
}

func TestFindJobBoardBacktracks(t *testing.T) {
	// The chosen branch is a dead end, the navigator must fall back to the
	// other candidate left in the frontier.
	driver := &siteDriver{pages: map[string]string{
		"https://example.com":           page("https://example.com/jobs-blog", "https://example.com/careers"),
		"https://example.com/jobs-blog": page(),
		"https://example.com/careers":   page(),
	}}
	decider := &scriptedDecider{decisions: []oracle.NavDecision{
		{Choice: 1},  // follow jobs-blog first
		{Choice: 0},  // dead end, nothing promising here
		{Stay: true}, // careers is the board
	}}

	nav := New(driver, decider, 5, nil, nil)
	board, err := nav.FindJobBoard(context.Background(), "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if board.URL != "https://example.com/careers" {
		t.Errorf("Expected backtrack to careers, got %q", board.URL)
	}
}

func TestFindJobBoardFallsBackToNextStartCandidate(t *testing.T) {
	// The top-ranked search result is not a careers page at all. The walk
	// must move on to the next ranked result instead of giving up.
	driver := &siteDriver{pages: map[string]string{
		"https://a.example.com/blog":    page("https://a.example.com/about"),
		"https://b.example.com/careers": page(),
	}}
	decider := &scriptedDecider{decisions: []oracle.NavDecision{
		{Choice: 0},  // nothing promising on the blog
		{Stay: true}, // second result is the board
	}}

	nav := New(driver, decider, 5, nil, nil)
	board, err := nav.FindJobBoard(context.Background(),
		"https://a.example.com/blog", "https://b.example.com/careers")
	if err != nil {
		t.Fatal(err)
	}
	if board.URL != "https://b.example.com/careers" {
		t.Errorf("Expected fallback to second candidate, got %q", board.URL)
	}
	if len(driver.opened) != 2 {
		t.Errorf("Expected 2 page loads, got %v", driver.opened)
	}
}

func TestFindJobBoardBudgetExhausted(t *testing.T) {
	driver := &siteDriver{pages: map[string]string{
		"https://example.com":       page("https://example.com/jobs1"),
		"https://example.com/jobs1": page("https://example.com/jobs2"),
		"https://example.com/jobs2": page("https://example.com/jobs3"),
		"https://example.com/jobs3": page(),
	}}
	decider := &scriptedDecider{decisions: []oracle.NavDecision{
		{Choice: 1}, {Choice: 1}, {Choice: 1}, {Choice: 0},
	}}

	nav := New(driver, decider, 2, nil, nil)
	_, err := nav.FindJobBoard(context.Background(), "https://example.com")
	if !errors.Is(err, common.ErrNavigationExhausted) {
		t.Errorf("Expected ErrNavigationExhausted, got %v", err)
	}
}

func TestFindJobBoardOracleFailureAborts(t *testing.T) {
	driver := &siteDriver{pages: map[string]string{
		"https://example.com": page("https://example.com/careers"),
	}}
	decider := &scriptedDecider{errs: []error{common.ErrOracleUnavailable}}

	nav := New(driver, decider, 5, nil, nil)
	_, err := nav.FindJobBoard(context.Background(), "https://example.com")
	if !errors.Is(err, common.ErrOracleUnavailable) {
		t.Errorf("Expected oracle failure to abort, got %v", err)
	}
	if decider.calls != 1 {
		t.Errorf("Expected a single oracle call, got %d", decider.calls)
	}
}

func TestFindJobBoardHopErrorBacktracks(t *testing.T) {
	// The first candidate page does not exist; the navigator should log the
	// failed hop and try the next one.
	driver := &siteDriver{pages: map[string]string{
		"https://example.com":         page("https://example.com/jobs-broken", "https://example.com/careers"),
		"https://example.com/careers": page(),
	}}
	decider := &scriptedDecider{decisions: []oracle.NavDecision{
		{Choice: 1},
		{Stay: true},
	}}

	nav := New(driver, decider, 5, nil, nil)
	board, err := nav.FindJobBoard(context.Background(), "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if board.URL != "https://example.com/careers" {
		t.Errorf("Expected recovery via second candidate, got %q", board.URL)
	}
}

func TestFilterJobLinks(t *testing.T) {
	links := []normalizer.Link{
		{Text: "Careers", URL: "https://example.com/careers"},
		{Text: "About us", URL: "https://example.com/about"},
		{Text: "Open positions", URL: "https://example.com/p/1"},
		{Text: "We are hiring", URL: "https://example.com/p/2"},
		{Text: "Contact", URL: "https://example.com/contact"},
		{Text: "Jobs", URL: "https://example.com/jobs"},
	}
	visited := map[string]bool{"https://example.com/jobs": true}

	got := filterJobLinks(links, visited)
	want := []string{
		"https://example.com/careers",
		"https://example.com/p/1",
		"https://example.com/p/2",
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d links, got %d: %+v", len(want), len(got), got)
	}
	for i, u := range want {
		if got[i].URL != u {
			t.Errorf("Expected %q at %d, got %q", u, i, got[i].URL)
		}
	}
}
