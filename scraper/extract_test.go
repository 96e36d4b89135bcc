package scraper

import (
	"testing"

	"github.com/hirewatch/scraper-http-service/common/models"
)

const boardPage = `
<html><body>
<div class="listings">
  <div class="job-row">
    <h3>  Senior   Backend
	Engineer </h3>
    <a class="apply" href="/jobs/123">Apply</a>
    <span class="loc">Berlin</span>
    <span class="posted">2 days ago</span>
  </div>
  <div class="job-row">
    <h3>Summer Intern</h3>
    <a class="apply" href="https://boards.example.com/jobs/456">Apply</a>
    <span class="loc">Remote</span>
  </div>
  <div class="job-row">
    <h3>Product Designer</h3>
    <span class="loc">Paris</span>
  </div>
  <div class="job-row">
    <h3></h3>
    <a class="apply" href="/jobs/789">Apply</a>
  </div>
</div>
</body></html>`

func TestExtractJobs(t *testing.T) {
	cfg := models.ScrapingConfiguration{
		JobContainerSelector: ".job-row",
		TitleSelector:        "h3",
		URLSelector:          "a.apply",
		LocationSelector:     ".loc",
		DateSelector:         ".posted",
	}

	jobs, raw, err := ExtractJobs(boardPage, "https://example.com/careers/", "target-1", cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	if raw != 4 {
		t.Errorf("Expected 4 raw container matches, got %d", raw)
	}

	// Rows missing a title or a url are dropped
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}

	if jobs[0].Title != "Senior Backend Engineer" {
		t.Errorf("Expected normalized title, got %q", jobs[0].Title)
	}
	if jobs[0].URL != "https://example.com/jobs/123" {
		t.Errorf("Expected absolute url, got %q", jobs[0].URL)
	}
	if !jobs[0].Location.Valid || jobs[0].Location.String != "Berlin" {
		t.Errorf("Expected location Berlin, got %+v", jobs[0].Location)
	}
	if !jobs[0].PostedDate.Valid || jobs[0].PostedDate.String != "2 days ago" {
		t.Errorf("Expected posted date, got %+v", jobs[0].PostedDate)
	}
	if jobs[1].PostedDate.Valid {
		t.Errorf("Expected no posted date on row without one, got %+v", jobs[1].PostedDate)
	}

	if jobs[1].URL != "https://boards.example.com/jobs/456" {
		t.Errorf("Expected absolute url kept as-is, got %q", jobs[1].URL)
	}
}

func TestExtractJobsKeywordFilter(t *testing.T) {
	cfg := models.ScrapingConfiguration{
		JobContainerSelector: ".job-row",
		TitleSelector:        "h3",
		URLSelector:          "a.apply",
	}

	tests := []struct {
		name     string
		keywords []string
		want     []string
	}{
		{"no keywords keeps all", nil, []string{"Senior Backend Engineer", "Summer Intern"}},
		{"intern only", []string{"intern"}, []string{"Summer Intern"}},
		{"case insensitive", []string{"ENGINEER"}, []string{"Senior Backend Engineer"}},
		{"no match", []string{"nurse"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, raw, err := ExtractJobs(boardPage, "https://example.com/careers/", "target-1", cfg, tt.keywords)
			if err != nil {
				t.Fatal(err)
			}
			if raw != 4 {
				t.Errorf("Expected raw count unaffected by keywords, got %d", raw)
			}
			if len(jobs) != len(tt.want) {
				t.Fatalf("Expected %d jobs, got %d", len(tt.want), len(jobs))
			}
			for i, title := range tt.want {
				if jobs[i].Title != title {
					t.Errorf("Expected title %q, got %q", title, jobs[i].Title)
				}
			}
		})
	}
}

func TestExtractJobsKeywordMatchesDescription(t *testing.T) {
	page := `
<div class="job-row">
  <h3>Software Engineer</h3>
  <a class="apply" href="/jobs/1">Apply</a>
  <p class="desc">This is a summer intern position on the platform team.</p>
</div>`

	cfg := models.ScrapingConfiguration{
		JobContainerSelector: ".job-row",
		TitleSelector:        "h3",
		URLSelector:          "a.apply",
		DescriptionSelector:  ".desc",
	}

	jobs, _, err := ExtractJobs(page, "https://example.com/", "target-1", cfg, []string{"intern"})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Expected posting kept via description keyword match, got %d jobs", len(jobs))
	}
	if !jobs[0].Description.Valid {
		t.Error("Expected description captured on the record")
	}

	// Without a description selector only the title is searchable
	cfg.DescriptionSelector = ""
	jobs, _, err = ExtractJobs(page, "https://example.com/", "target-1", cfg, []string{"intern"})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 0 {
		t.Errorf("Expected no match on title alone, got %d jobs", len(jobs))
	}
}

func TestExtractJobsContainerIsAnchor(t *testing.T) {
	page := `
<ul>
  <li><a class="opening" href="/careers/1"><span class="t">Data Engineer</span></a></li>
  <li><a class="opening" href="/careers/2"><span class="t">QA Analyst</span></a></li>
</ul>`

	cfg := models.ScrapingConfiguration{
		JobContainerSelector: "a.opening",
		TitleSelector:        ".t",
		URLSelector:          "a",
	}

	jobs, raw, err := ExtractJobs(page, "https://example.com/", "target-1", cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if raw != 2 {
		t.Errorf("Expected 2 raw container matches, got %d", raw)
	}
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].URL != "https://example.com/careers/1" {
		t.Errorf("Expected href from the container itself, got %q", jobs[0].URL)
	}
}
