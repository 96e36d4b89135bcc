package normalizer

import (
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// Elements removed before a page is shown to the reasoning oracle. Navigation
// blocks are kept when they carry pagination controls.
var chromeSelectors = []string{
	"script", "style", "noscript", "svg", "iframe",
	"header", "footer", "aside",
}

// Link is an anchor extracted from a page, with its URL resolved absolute
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Document is the normalized view of a page handed to the reasoning oracle
type Document struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	HTML  string `json:"html"`
	Links []Link `json:"links"`
}

// Normalize strips page chrome, condenses visible text and resolves the
// same-site link graph of the given raw HTML.
func Normalize(rawHTML, baseURL string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Document{}, err
	}

	for _, sel := range chromeSelectors {
		doc.Find(sel).Remove()
	}
	doc.Find("nav").Each(func(_ int, s *goquery.Selection) {
		if !isPagination(s) {
			s.Remove()
		}
	})

	cleaned, err := doc.Find("body").Html()
	if err != nil || cleaned == "" {
		cleaned, _ = doc.Html()
	}

	links, err := ExtractLinks(rawHTML, baseURL)
	if err != nil {
		return Document{}, err
	}

	return Document{
		Title: NormalizeText(doc.Find("title").Text()),
		Text:  CondensedText(cleaned),
		HTML:  cleaned,
		Links: links,
	}, nil
}

// CondensedText converts an HTML fragment to compact markdown-flavored text
func CondensedText(html string) string {
	converter := md.NewConverter("", true, nil)
	text, err := converter.ConvertString(html)
	if err != nil {
		return NormalizeText(html)
	}
	return strings.TrimSpace(text)
}

// ExtractLinks returns every same-site anchor of the page with absolute URLs.
// Fragment-only and javascript: anchors are dropped.
func ExtractLinks(rawHTML, baseURL string) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var links []Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}

		resolved := ResolveURL(base, href)
		if resolved == "" || !SameSite(base, resolved) {
			return
		}
		if seen[resolved] {
			return
		}
		seen[resolved] = true

		links = append(links, Link{
			Text: NormalizeText(s.Text()),
			URL:  resolved,
		})
	})

	return links, nil
}

// ResolveURL resolves href against base and strips fragments
func ResolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// SameSite reports whether target stays on the base URL's registered host.
// Subdomains of the base host count as the same site.
func SameSite(base *url.URL, target string) bool {
	t, err := url.Parse(target)
	if err != nil {
		return false
	}
	baseHost := strings.TrimPrefix(strings.ToLower(base.Hostname()), "www.")
	targetHost := strings.TrimPrefix(strings.ToLower(t.Hostname()), "www.")
	return targetHost == baseHost || strings.HasSuffix(targetHost, "."+baseHost)
}

// NormalizeText collapses runs of whitespace to single spaces and trims
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most max bytes, appending a marker when cut
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func isPagination(s *goquery.Selection) bool {
	class, _ := s.Attr("class")
	id, _ := s.Attr("id")
	label, _ := s.Attr("aria-label")
	haystack := strings.ToLower(class + " " + id + " " + label)
	return strings.Contains(haystack, "pag")
}
