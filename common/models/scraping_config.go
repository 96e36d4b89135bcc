package models

import (
	"encoding/json"
	"errors"
)

// SearchMode describes how the scraper interacts with an on-page search control
type SearchMode string

const (
	// SearchModeNone performs no search interaction before extraction
	SearchModeNone SearchMode = "none"
	// SearchModeButton clicks a button to reveal listings, without typing
	SearchModeButton SearchMode = "button-only"
	// SearchModeQuery types a query into a search input and submits it
	SearchModeQuery SearchMode = "typed-query"
)

// ScrapingConfiguration is the executable recipe for extracting jobs from a board
type ScrapingConfiguration struct {
	JobContainerSelector string `json:"job_container_selector"`
	TitleSelector        string `json:"title_selector"`
	URLSelector          string `json:"url_selector"`
	DescriptionSelector  string `json:"description_selector,omitempty"`
	LocationSelector     string `json:"location_selector,omitempty"`
	DateSelector         string `json:"date_selector,omitempty"`
	PaginationSelector   string `json:"pagination_selector,omitempty"`
	HasDynamicLoading    bool   `json:"has_dynamic_loading"`

	SearchButtonSelector string `json:"search_button_selector,omitempty"`
	SearchInputSelector  string `json:"search_input_selector,omitempty"`
	SearchQuery          string `json:"search_query,omitempty"`
}

var (
	// ErrMissingContainer is returned when the container selector is empty
	ErrMissingContainer = errors.New("job container selector is required")
	// ErrMissingTitle is returned when the title selector is empty
	ErrMissingTitle = errors.New("title selector is required")
	// ErrMissingURL is returned when the url selector is empty
	ErrMissingURL = errors.New("url selector is required")
	// ErrAmbiguousSearchMode is returned when more than one search interaction is configured
	ErrAmbiguousSearchMode = errors.New("search button and search input are mutually exclusive")
	// ErrMissingSearchQuery is returned when a search input has no query to type
	ErrMissingSearchQuery = errors.New("search input requires a search query")
)

// Validate checks the configuration for structural completeness
func (c ScrapingConfiguration) Validate() error {
	if c.JobContainerSelector == "" {
		return ErrMissingContainer
	}
	if c.TitleSelector == "" {
		return ErrMissingTitle
	}
	if c.URLSelector == "" {
		return ErrMissingURL
	}
	if c.SearchButtonSelector != "" && c.SearchInputSelector != "" {
		return ErrAmbiguousSearchMode
	}
	if c.SearchInputSelector != "" && c.SearchQuery == "" {
		return ErrMissingSearchQuery
	}
	return nil
}

// SearchMode reports which search interaction the configuration requests
func (c ScrapingConfiguration) SearchMode() SearchMode {
	switch {
	case c.SearchInputSelector != "":
		return SearchModeQuery
	case c.SearchButtonSelector != "":
		return SearchModeButton
	default:
		return SearchModeNone
	}
}

// ToJson serializes the configuration for storage
func (c ScrapingConfiguration) ToJson() ([]byte, error) {
	return json.Marshal(c)
}

// ScrapingConfigurationFromJson deserializes a stored configuration
func ScrapingConfigurationFromJson(j []byte) (ScrapingConfiguration, error) {
	var c ScrapingConfiguration
	if err := json.Unmarshal(j, &c); err != nil {
		return ScrapingConfiguration{}, err
	}
	return c, nil
}
