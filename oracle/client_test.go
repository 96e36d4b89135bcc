package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hirewatch/scraper-http-service/common"
	"github.com/hirewatch/scraper-http-service/common/config"
	"github.com/hirewatch/scraper-http-service/common/normalizer"
)

// oracleStub serves scripted chat completion replies
type oracleStub struct {
	replies  []string
	statuses []int
	calls    int
	auth     []string
}

func (s *oracleStub) handler(w http.ResponseWriter, r *http.Request) {
	i := s.calls
	s.calls++
	s.auth = append(s.auth, r.Header.Get("Authorization"))

	status := http.StatusOK
	if i < len(s.statuses) && s.statuses[i] != 0 {
		status = s.statuses[i]
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	reply := ""
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": reply}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, stub *oracleStub) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	t.Cleanup(srv.Close)
	return NewClient(config.OracleConfig{
		BaseURL:    srv.URL,
		Model:      "test-model",
		MaxRetries: 2,
	}, "secret-key")
}

func TestRank(t *testing.T) {
	results := []SearchResult{
		{Title: "Acme Careers", URL: "https://acme.example/careers"},
		{Title: "Acme on LinkedIn", URL: "https://linkedin.example/acme"},
	}

	tests := []struct {
		name  string
		reply string
		want  int
	}{
		{"picks second", "2", 2},
		{"whitespace tolerated", "  1\n", 1},
		{"zero means none", "0", 0},
		{"garbage falls back to first", "the best option is clearly", 1},
		{"out of range falls back", "9", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &oracleStub{replies: []string{tt.reply}})
			got, err := client.Rank(context.Background(), "acme", results)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestNavigate(t *testing.T) {
	doc := normalizer.Document{Title: "Acme", Text: "About us"}
	candidates := []normalizer.Link{
		{Text: "Careers", URL: "https://acme.example/careers"},
		{Text: "Jobs", URL: "https://acme.example/jobs"},
	}

	tests := []struct {
		name  string
		reply string
		want  NavDecision
	}{
		{"stay", "STAY", NavDecision{Stay: true}},
		{"stay with prose", "stay, this is the board", NavDecision{Stay: true}},
		{"choice", "2", NavDecision{Choice: 2}},
		{"choice with period", "1.", NavDecision{Choice: 1}},
		{"none promising", "0", NavDecision{}},
		{"garbage treated as none", "hmm", NavDecision{}},
		{"out of range treated as none", "7", NavDecision{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &oracleStub{replies: []string{tt.reply}})
			got, err := client.Navigate(context.Background(), doc, candidates)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

const goodConfigJSON = `{
  "job_container_selector": ".job-row",
  "title_selector": "h3",
  "url_selector": "a.apply"
}`

func TestSynthesize(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		client := newTestClient(t, &oracleStub{replies: []string{goodConfigJSON}})
		cfg, err := client.Synthesize(context.Background(), "<html/>", "")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.JobContainerSelector != ".job-row" {
			t.Errorf("Unexpected config: %+v", cfg)
		}
	})

	t.Run("fenced json", func(t *testing.T) {
		reply := "Here you go:\n```json\n" + goodConfigJSON + "\n```\n"
		client := newTestClient(t, &oracleStub{replies: []string{reply}})
		cfg, err := client.Synthesize(context.Background(), "<html/>", "")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.TitleSelector != "h3" {
			t.Errorf("Unexpected config: %+v", cfg)
		}
	})

	t.Run("malformed shape re-asked", func(t *testing.T) {
		stub := &oracleStub{replies: []string{"not json at all", goodConfigJSON}}
		client := newTestClient(t, stub)
		cfg, err := client.Synthesize(context.Background(), "<html/>", "")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.URLSelector != "a.apply" {
			t.Errorf("Unexpected config: %+v", cfg)
		}
		if stub.calls != 2 {
			t.Errorf("Expected 2 completions, got %d", stub.calls)
		}
	})

	t.Run("persistent malformed shape rejected", func(t *testing.T) {
		stub := &oracleStub{replies: []string{"nope", "nope", "nope"}}
		client := newTestClient(t, stub)
		_, err := client.Synthesize(context.Background(), "<html/>", "")
		if !errors.Is(err, common.ErrSynthesisRejected) {
			t.Errorf("Expected ErrSynthesisRejected, got %v", err)
		}
		if stub.calls != 3 {
			t.Errorf("Expected 3 completions, got %d", stub.calls)
		}
	})

	t.Run("incomplete config rejected", func(t *testing.T) {
		incomplete := `{"job_container_selector": ".job-row"}`
		stub := &oracleStub{replies: []string{incomplete, incomplete, incomplete}}
		client := newTestClient(t, stub)
		_, err := client.Synthesize(context.Background(), "<html/>", "")
		if !errors.Is(err, common.ErrSynthesisRejected) {
			t.Errorf("Expected ErrSynthesisRejected, got %v", err)
		}
	})
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	stub := &oracleStub{
		statuses: []int{http.StatusInternalServerError, http.StatusTooManyRequests, 0},
		replies:  []string{"", "", "STAY"},
	}
	client := newTestClient(t, stub)

	got, err := client.Navigate(context.Background(), normalizer.Document{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Stay {
		t.Errorf("Expected STAY after retries, got %+v", got)
	}
	if stub.calls != 3 {
		t.Errorf("Expected 3 requests, got %d", stub.calls)
	}
}

func TestCompleteGivesUpAfterRetries(t *testing.T) {
	stub := &oracleStub{statuses: []int{500, 500, 500, 500}}
	client := newTestClient(t, stub)

	_, err := client.Navigate(context.Background(), normalizer.Document{}, nil)
	if !errors.Is(err, common.ErrOracleUnavailable) {
		t.Errorf("Expected ErrOracleUnavailable, got %v", err)
	}
}

func TestAuthorizationHeaderCarriesKey(t *testing.T) {
	stub := &oracleStub{replies: []string{"STAY"}}
	client := newTestClient(t, stub)

	if _, err := client.Navigate(context.Background(), normalizer.Document{}, nil); err != nil {
		t.Fatal(err)
	}
	if len(stub.auth) == 0 || stub.auth[0] != "Bearer secret-key" {
		t.Errorf("Expected bearer key on request, got %v", stub.auth)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"wrapped in prose", `sure: {"a":1} hope that helps`, `{"a":1}`},
		{"no object", "nothing here", ""},
		{"unbalanced", "{oops", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.reply); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
