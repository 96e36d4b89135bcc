package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/common/normalizer"
)

// ExtractJobs applies a scraping configuration to a page's HTML and returns
// the job records found on it, plus the raw count of container matches before
// any filtering. Records missing a title or url are dropped. When keywords
// are given, only postings whose title or description contains one survive.
func ExtractJobs(pageHTML, baseURL, targetID string, cfg models.ScrapingConfiguration, keywords []string) ([]models.JobRecord, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, 0, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, 0, err
	}

	raw := 0
	var jobs []models.JobRecord
	doc.Find(cfg.JobContainerSelector).Each(func(_ int, container *goquery.Selection) {
		raw++

		title := normalizer.NormalizeText(container.Find(cfg.TitleSelector).First().Text())
		jobURL := extractJobURL(container, cfg.URLSelector, base)
		if title == "" || jobURL == "" {
			return
		}

		desc := ""
		if cfg.DescriptionSelector != "" {
			desc = normalizer.NormalizeText(container.Find(cfg.DescriptionSelector).First().Text())
		}
		if !matchesKeywords(title, desc, keywords) {
			return
		}

		job := models.JobRecord{
			ID:       uuid.New().String(),
			TargetID: targetID,
			Title:    title,
			URL:      jobURL,
		}
		if desc != "" {
			job.Description = pgtype.Text{String: desc, Valid: true}
		}
		if cfg.LocationSelector != "" {
			if loc := normalizer.NormalizeText(container.Find(cfg.LocationSelector).First().Text()); loc != "" {
				job.Location = pgtype.Text{String: loc, Valid: true}
			}
		}
		if cfg.DateSelector != "" {
			if posted := normalizer.NormalizeText(container.Find(cfg.DateSelector).First().Text()); posted != "" {
				job.PostedDate = pgtype.Text{String: posted, Valid: true}
			}
		}

		jobs = append(jobs, job)
	})

	return jobs, raw, nil
}

// extractJobURL prefers an href on the container itself, then falls back to
// the configured url selector inside it. The result is always absolute.
func extractJobURL(container *goquery.Selection, urlSelector string, base *url.URL) string {
	if href, ok := container.Attr("href"); ok && strings.TrimSpace(href) != "" {
		return normalizer.ResolveURL(base, strings.TrimSpace(href))
	}

	link := container.Find(urlSelector).First()
	if href, ok := link.Attr("href"); ok && strings.TrimSpace(href) != "" {
		return normalizer.ResolveURL(base, strings.TrimSpace(href))
	}

	// The url selector may point at a non-anchor element wrapping the link
	if href, ok := link.Find("a[href]").First().Attr("href"); ok {
		return normalizer.ResolveURL(base, strings.TrimSpace(href))
	}
	return ""
}

// matchesKeywords checks the posting's title and description for any of the
// keywords, case-insensitively.
func matchesKeywords(title, description string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(title + " " + description)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
