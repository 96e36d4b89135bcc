package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/hirewatch/scraper-http-service/common/models"
)

func newMockQueries(t *testing.T) (pgxmock.PgxPoolIface, *Queries) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)
	return mock, New(mock)
}

func TestInsertJobsBatch(t *testing.T) {
	mock, q := newMockQueries(t)

	jobs := []models.JobRecord{
		{ID: "j1", TargetID: "t1", Title: "Backend Engineer", URL: "https://example.com/jobs/1"},
		{ID: "j2", TargetID: "t1", Title: "Data Engineer", URL: "https://example.com/jobs/2"},
		{ID: "j3", TargetID: "t1", Title: "", URL: "https://example.com/jobs/3"},
		{ID: "j4", TargetID: "t1", Title: "Duplicate Role", URL: "https://example.com/jobs/1"},
	}

	batch := mock.ExpectBatch()
	batch.ExpectExec("INSERT INTO jobs").
		WithArgs("j1", "t1", "Backend Engineer", "https://example.com/jobs/1", pgtype.Text{}, pgtype.Text{}, pgtype.Text{}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec("INSERT INTO jobs").
		WithArgs("j2", "t1", "Data Engineer", "https://example.com/jobs/2", pgtype.Text{}, pgtype.Text{}, pgtype.Text{}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec("INSERT INTO jobs").
		WithArgs("j4", "t1", "Duplicate Role", "https://example.com/jobs/1", pgtype.Text{}, pgtype.Text{}, pgtype.Text{}).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	result, err := q.InsertJobsBatch(context.Background(), jobs)
	if err != nil {
		t.Fatal(err)
	}

	if result.Added != 2 {
		t.Errorf("Expected 2 added, got %d", result.Added)
	}
	if result.Duplicates != 1 {
		t.Errorf("Expected 1 duplicate, got %d", result.Duplicates)
	}
	if result.Errors != 1 {
		t.Errorf("Expected 1 error, got %d", result.Errors)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestInsertJobsBatchAllInvalid(t *testing.T) {
	_, q := newMockQueries(t)

	jobs := []models.JobRecord{
		{ID: "j1", TargetID: "t1", Title: "No URL"},
		{ID: "j2", TargetID: "t1", URL: "https://example.com/jobs/2"},
	}

	result, err := q.InsertJobsBatch(context.Background(), jobs)
	if err != nil {
		t.Fatal(err)
	}
	if result.Errors != 2 || result.Added != 0 {
		t.Errorf("Expected all records rejected, got %+v", result)
	}
}

func TestGetJobURLsByTarget(t *testing.T) {
	mock, q := newMockQueries(t)

	rows := pgxmock.NewRows([]string{"url"}).
		AddRow("https://example.com/jobs/1").
		AddRow("https://example.com/jobs/2")
	mock.ExpectQuery("SELECT url FROM jobs").WithArgs("t1").WillReturnRows(rows)

	urls, err := q.GetJobURLsByTarget(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 {
		t.Fatalf("Expected 2 urls, got %d", len(urls))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListJobs(t *testing.T) {
	mock, q := newMockQueries(t)

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "target_id", "title", "url", "description", "location", "posted_date", "created_at"}).
		AddRow("j1", "t1", "Backend Engineer", "https://example.com/jobs/1",
			pgtype.Text{String: "desc", Valid: true}, pgtype.Text{String: "Berlin", Valid: true},
			pgtype.Text{String: "2 days ago", Valid: true}, now)
	mock.ExpectQuery("SELECT id, target_id, title, url").
		WithArgs("t1", "engineer", 20, 0).
		WillReturnRows(rows)

	jobs, err := q.ListJobs(context.Background(), ListJobsParams{
		TargetID: "t1",
		Search:   "engineer",
		Limit:    20,
		Offset:   0,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Location.String != "Berlin" {
		t.Errorf("Unexpected job: %+v", jobs[0])
	}
	if jobs[0].PostedDate.String != "2 days ago" {
		t.Errorf("Expected posted date scanned, got %+v", jobs[0].PostedDate)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCountJobs(t *testing.T) {
	mock, q := newMockQueries(t)

	mock.ExpectQuery("SELECT count").
		WithArgs("t1", "").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := q.CountJobs(context.Background(), "t1", "")
	if err != nil {
		t.Fatal(err)
	}
	if count != 7 {
		t.Errorf("Expected 7, got %d", count)
	}
}
