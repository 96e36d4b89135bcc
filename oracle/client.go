package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common"
	"github.com/hirewatch/scraper-http-service/common/config"
	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/common/normalizer"
)

// How much page text the oracle is shown per request
const (
	maxPromptHTML  = 15000
	maxPromptLinks = 60
	maxBackoff     = 30 * time.Second
)

// Client talks to an OpenAI-compatible chat completions endpoint. A client is
// scoped to one workflow and carries that workflow's API key, which is never
// persisted.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	maxRetries uint
	httpClient *http.Client
}

// NewClient creates an oracle client for a single workflow
func NewClient(cfg config.OracleConfig, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     apiKey,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// NavDecision is the oracle's verdict on the currently open page
type NavDecision struct {
	// Stay indicates the current page is the job board to scrape
	Stay bool
	// Choice is the 1-based index of the candidate link to follow next.
	// Zero with Stay false means no candidate is promising.
	Choice int
}

// Rank picks the most promising search result for a company's job board.
// Returns the 1-based index of the chosen result, or 0 when none fit.
func (c *Client) Rank(ctx context.Context, company string, results []SearchResult) (int, error) {
	reply, err := c.complete(ctx, rankSystemPrompt, rankUserPrompt(company, results))
	if err != nil {
		return 0, err
	}

	choice, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil || choice < 0 || choice > len(results) {
		log.Warn().Str("reply", reply).Msg("Oracle returned unparseable rank, falling back to first result")
		if len(results) > 0 {
			return 1, nil
		}
		return 0, nil
	}
	return choice, nil
}

// Navigate asks the oracle whether the current page is a job board, and if
// not, which candidate link to follow.
func (c *Client) Navigate(ctx context.Context, doc normalizer.Document, candidates []normalizer.Link) (NavDecision, error) {
	reply, err := c.complete(ctx, navigateSystemPrompt, navigateUserPrompt(doc, candidates))
	if err != nil {
		return NavDecision{}, err
	}

	reply = strings.TrimSpace(strings.ToUpper(reply))
	if strings.HasPrefix(reply, "STAY") {
		return NavDecision{Stay: true}, nil
	}

	choice, err := strconv.Atoi(strings.TrimSpace(strings.Trim(reply, ".")))
	if err != nil || choice < 0 || choice > len(candidates) {
		return NavDecision{}, nil
	}
	return NavDecision{Choice: choice}, nil
}

// Synthesize derives a scraping configuration from a job board page. Feedback
// from a previously failed attempt is threaded into the prompt. Responses with
// a malformed shape are re-requested a bounded number of times before the call
// surfaces ErrSynthesisRejected.
func (c *Client) Synthesize(ctx context.Context, pageHTML string, feedback string) (models.ScrapingConfiguration, error) {
	const shapeRetries = 2

	var lastErr error
	for attempt := 0; attempt <= shapeRetries; attempt++ {
		reply, err := c.complete(ctx, synthesizeSystemPrompt, synthesizeUserPrompt(pageHTML, feedback))
		if err != nil {
			return models.ScrapingConfiguration{}, err
		}

		cfg, err := parseConfiguration(reply)
		if err == nil {
			return cfg, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("Oracle returned malformed configuration, re-asking")
	}

	return models.ScrapingConfiguration{}, fmt.Errorf("%w: %v", common.ErrSynthesisRejected, lastErr)
}

func parseConfiguration(reply string) (models.ScrapingConfiguration, error) {
	payload := extractJSON(reply)
	if payload == "" {
		return models.ScrapingConfiguration{}, errors.New("no JSON object in reply")
	}

	var cfg models.ScrapingConfiguration
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return models.ScrapingConfiguration{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return models.ScrapingConfiguration{}, err
	}
	return cfg, nil
}

// extractJSON pulls the first JSON object out of a reply that may wrap it in
// markdown code fences or prose.
func extractJSON(reply string) string {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return ""
	}
	return reply[start : end+1]
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete performs one chat completion with exponential backoff on transient
// failures. Backoff retries are independent of the synthesis attempt budget.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := uint(0); attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Min(math.Pow(2, float64(attempt)), maxBackoff.Seconds())) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		reply, retryable, err := c.doRequest(ctx, body)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
		log.Warn().Err(err).Uint("attempt", attempt+1).Msg("Oracle request failed, backing off")
	}

	return "", fmt.Errorf("%w: %v", common.ErrOracleUnavailable, lastErr)
}

func (c *Client) doRequest(ctx context.Context, body []byte) (reply string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, normalizer.Truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", true, fmt.Errorf("decoding oracle response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", true, errors.New("oracle response has no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}
