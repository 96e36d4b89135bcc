package scraper

import "testing"

func TestInspectPagination(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		selector string
		want     PaginationState
	}{
		{
			"no selector",
			`<a class="next">Next</a>`,
			"",
			PaginationState{},
		},
		{
			"control absent",
			`<div class="pager"></div>`,
			"a.next",
			PaginationState{},
		},
		{
			"control enabled",
			`<a class="next" href="?page=2">Next</a>`,
			"a.next",
			PaginationState{Present: true},
		},
		{
			"disabled attribute",
			`<button class="next" disabled>Next</button>`,
			".next",
			PaginationState{Present: true, Disabled: true},
		},
		{
			"aria disabled",
			`<a class="next" aria-disabled="true">Next</a>`,
			".next",
			PaginationState{Present: true, Disabled: true},
		},
		{
			"disabled class",
			`<a class="next pagination-disabled">Next</a>`,
			".next",
			PaginationState{Present: true, Disabled: true},
		},
		{
			"hidden via style",
			`<a class="next" style="display: none">Next</a>`,
			".next",
			PaginationState{Present: true, Disabled: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InspectPagination(tt.html, tt.selector)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestDuplicateRatio(t *testing.T) {
	known := map[string]bool{
		"https://example.com/jobs/1": true,
		"https://example.com/jobs/2": true,
	}

	tests := []struct {
		name string
		urls []string
		want float64
	}{
		{"empty page", nil, 0},
		{"all new", []string{"https://example.com/jobs/9"}, 0},
		{"half known", []string{"https://example.com/jobs/1", "https://example.com/jobs/9"}, 0.5},
		{"all known", []string{"https://example.com/jobs/1", "https://example.com/jobs/2"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DuplicateRatio(tt.urls, known); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
