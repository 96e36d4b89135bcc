package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TerminationReason explains why a pagination loop stopped
type TerminationReason string

const (
	// TerminationNoControl means the page has no next-page control
	TerminationNoControl TerminationReason = "no_next_control"
	// TerminationControlDisabled means the next-page control cannot be clicked
	TerminationControlDisabled TerminationReason = "next_disabled"
	// TerminationDuplicates means the duplicate-ratio guard tripped
	TerminationDuplicates TerminationReason = "duplicates"
	// TerminationEmptyPage means a page yielded no job records
	TerminationEmptyPage TerminationReason = "empty_page"
	// TerminationPageLimit means the page ceiling was reached
	TerminationPageLimit TerminationReason = "page_limit"
	// TerminationPageTimeout means a page navigation timed out
	TerminationPageTimeout TerminationReason = "page_timeout"
	// TerminationSinglePage means the configuration has no pagination
	TerminationSinglePage TerminationReason = "single_page"
)

// PaginationState describes the next-page control on the current page
type PaginationState struct {
	Present  bool
	Disabled bool
}

// InspectPagination examines the next-page control in the page's HTML
func InspectPagination(pageHTML, selector string) (PaginationState, error) {
	if selector == "" {
		return PaginationState{}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return PaginationState{}, err
	}

	control := doc.Find(selector).First()
	if control.Length() == 0 {
		return PaginationState{}, nil
	}

	return PaginationState{
		Present:  true,
		Disabled: controlDisabled(control),
	}, nil
}

func controlDisabled(control *goquery.Selection) bool {
	if _, ok := control.Attr("disabled"); ok {
		return true
	}
	if aria, ok := control.Attr("aria-disabled"); ok && aria == "true" {
		return true
	}
	if class, ok := control.Attr("class"); ok && strings.Contains(strings.ToLower(class), "disabled") {
		return true
	}
	if style, ok := control.Attr("style"); ok {
		compact := strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(compact, "display:none") || strings.Contains(compact, "visibility:hidden") {
			return true
		}
	}
	return false
}

// DuplicateRatio is the share of a page's urls already present in known.
// A page with no urls has ratio 0.
func DuplicateRatio(pageURLs []string, known map[string]bool) float64 {
	if len(pageURLs) == 0 {
		return 0
	}
	duplicates := 0
	for _, u := range pageURLs {
		if known[u] {
			duplicates++
		}
	}
	return float64(duplicates) / float64(len(pageURLs))
}
