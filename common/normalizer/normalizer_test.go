package normalizer

import (
	"net/url"
	"strings"
	"testing"
)

func TestNormalizeStripsChrome(t *testing.T) {
	raw := `
<html>
<head><title>  Acme   Careers </title><script>var x = 1;</script></head>
<body>
  <header>Site header</header>
  <nav><a href="/about">About</a></nav>
  <nav class="pagination"><a href="?page=2">2</a></nav>
  <main><h1>Open roles</h1><p>Join us.</p></main>
  <footer>Copyright</footer>
</body>
</html>`

	doc, err := Normalize(raw, "https://example.com/careers")
	if err != nil {
		t.Fatal(err)
	}

	if doc.Title != "Acme Careers" {
		t.Errorf("Expected normalized title, got %q", doc.Title)
	}
	for _, gone := range []string{"Site header", "Copyright", "var x"} {
		if strings.Contains(doc.HTML, gone) {
			t.Errorf("Expected %q stripped from HTML", gone)
		}
	}
	if strings.Contains(doc.HTML, "/about") {
		t.Error("Expected plain nav removed")
	}
	if !strings.Contains(doc.HTML, "page=2") {
		t.Error("Expected pagination nav kept")
	}
	if !strings.Contains(doc.Text, "Open roles") {
		t.Errorf("Expected visible text condensed, got %q", doc.Text)
	}
}

func TestExtractLinks(t *testing.T) {
	raw := `
<body>
  <a href="/careers">Careers</a>
  <a href="https://example.com/jobs#list">Jobs</a>
  <a href="https://jobs.example.com/">Board</a>
  <a href="https://other.io/careers">External</a>
  <a href="#top">Top</a>
  <a href="javascript:void(0)">Menu</a>
  <a href="mailto:hr@example.com">Email</a>
  <a href="/careers">Careers again</a>
</body>`

	links, err := ExtractLinks(raw, "https://www.example.com/")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"https://www.example.com/careers",
		"https://example.com/jobs",
		"https://jobs.example.com/",
	}
	if len(links) != len(want) {
		t.Fatalf("Expected %d links, got %d: %+v", len(want), len(links), links)
	}
	for i, u := range want {
		if links[i].URL != u {
			t.Errorf("Expected %q at %d, got %q", u, i, links[i].URL)
		}
	}
}

func TestSameSite(t *testing.T) {
	base, _ := url.Parse("https://www.example.com/careers")

	tests := []struct {
		target string
		want   bool
	}{
		{"https://example.com/jobs", true},
		{"https://www.example.com/jobs", true},
		{"https://jobs.example.com/", true},
		{"https://other.io/", false},
		{"https://example.com.evil.io/", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := SameSite(base, tt.target); got != tt.want {
				t.Errorf("SameSite(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Senior   Backend\n\tEngineer ", "Senior Backend Engineer"},
		{"", ""},
		{"one", "one"},
	}
	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Errorf("Expected truncation marker, got %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Expected string kept, got %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Expected no-op for zero max, got %q", got)
	}
}
