package models

import (
	"errors"
	"testing"
)

func TestScrapingConfigurationValidate(t *testing.T) {
	valid := ScrapingConfiguration{
		JobContainerSelector: ".job-row",
		TitleSelector:        ".title",
		URLSelector:          "a",
	}

	tests := []struct {
		name    string
		mutate  func(c *ScrapingConfiguration)
		wantErr error
	}{
		{"valid minimal", func(c *ScrapingConfiguration) {}, nil},
		{"missing container", func(c *ScrapingConfiguration) { c.JobContainerSelector = "" }, ErrMissingContainer},
		{"missing title", func(c *ScrapingConfiguration) { c.TitleSelector = "" }, ErrMissingTitle},
		{"missing url", func(c *ScrapingConfiguration) { c.URLSelector = "" }, ErrMissingURL},
		{"both search modes", func(c *ScrapingConfiguration) {
			c.SearchButtonSelector = "#search-btn"
			c.SearchInputSelector = "#search-input"
			c.SearchQuery = "engineer"
		}, ErrAmbiguousSearchMode},
		{"input without query", func(c *ScrapingConfiguration) {
			c.SearchInputSelector = "#search-input"
		}, ErrMissingSearchQuery},
		{"button only", func(c *ScrapingConfiguration) {
			c.SearchButtonSelector = "#search-btn"
		}, nil},
		{"typed query", func(c *ScrapingConfiguration) {
			c.SearchInputSelector = "#search-input"
			c.SearchQuery = "engineer"
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestScrapingConfigurationSearchMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  ScrapingConfiguration
		want SearchMode
	}{
		{"none", ScrapingConfiguration{}, SearchModeNone},
		{"button", ScrapingConfiguration{SearchButtonSelector: "#btn"}, SearchModeButton},
		{"query", ScrapingConfiguration{SearchInputSelector: "#input", SearchQuery: "intern"}, SearchModeQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.SearchMode(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestScrapingConfigurationRoundTrip(t *testing.T) {
	cfg := ScrapingConfiguration{
		JobContainerSelector: ".job-row",
		TitleSelector:        "h3",
		URLSelector:          "a.apply",
		PaginationSelector:   ".next",
		HasDynamicLoading:    true,
	}

	data, err := cfg.ToJson()
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := ScrapingConfigurationFromJson(data)
	if err != nil {
		t.Fatal(err)
	}
	if decoded != cfg {
		t.Errorf("Expected %+v, got %+v", cfg, decoded)
	}
}
