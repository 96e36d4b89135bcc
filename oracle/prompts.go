package oracle

import (
	"fmt"
	"strings"

	"github.com/hirewatch/scraper-http-service/common/normalizer"
)

// SearchResult is a candidate page offered to the oracle for ranking
type SearchResult struct {
	Title       string
	URL         string
	Description string
}

const rankSystemPrompt = `You are helping locate the official careers or jobs page of a company.
You will be given a numbered list of web search results.
Reply with ONLY the number of the result most likely to be the company's own job listings page.
Prefer pages hosted on the company's own domain or its applicant tracking system.
Reply 0 if none of the results look like the company's job listings.`

func rankUserPrompt(company string, results []SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n\nSearch results:\n", company)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, normalizer.Truncate(r.Description, 200))
	}
	return b.String()
}

const navigateSystemPrompt = `You are navigating a company website looking for the page that lists open job positions.
You will be given the current page's content and a numbered list of links on it.
Reply with EXACTLY one of:
- STAY if the current page already shows a list of job openings to extract
- the number of the link most likely to lead to the job listings
- 0 if the current page is not a job board and none of the links look promising`

func navigateUserPrompt(doc normalizer.Document, candidates []normalizer.Link) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page title: %s\n\nPage content:\n%s\n\nLinks:\n",
		doc.Title, normalizer.Truncate(doc.Text, maxPromptHTML))

	limit := len(candidates)
	if limit > maxPromptLinks {
		limit = maxPromptLinks
	}
	for i := 0; i < limit; i++ {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, candidates[i].Text, candidates[i].URL)
	}
	return b.String()
}

const synthesizeSystemPrompt = `You are an expert at analyzing job board HTML and producing CSS selectors for scraping it.
Reply with ONLY a JSON object with these fields:
{
  "job_container_selector": "CSS selector matching one element per job posting",
  "title_selector": "selector for the job title, relative to the container",
  "url_selector": "selector for the link to the job posting, relative to the container",
  "description_selector": "selector for a short description, relative to the container, or empty",
  "location_selector": "selector for the job location, relative to the container, or empty",
  "date_selector": "selector for the posting date, relative to the container, or empty",
  "pagination_selector": "selector for the next-page control, or empty if there is none",
  "has_dynamic_loading": true or false,
  "search_button_selector": "selector for a button that must be clicked to reveal the listings, or empty",
  "search_input_selector": "selector for a search input that must be used to reveal the listings, or empty",
  "search_query": "the query to type into the search input, or empty"
}
job_container_selector, title_selector and url_selector are required.
Never set both search_button_selector and search_input_selector.`

func synthesizeUserPrompt(pageHTML, feedback string) string {
	var b strings.Builder
	if feedback != "" {
		fmt.Fprintf(&b, "A previous configuration failed: %s\nProduce a corrected configuration.\n\n", feedback)
	}
	fmt.Fprintf(&b, "Job board HTML:\n%s", normalizer.Truncate(pageHTML, maxPromptHTML))
	return b.String()
}
