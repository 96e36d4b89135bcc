package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/hirewatch/scraper-http-service/common/models"
)

func targetRowColumns() []string {
	return []string{"id", "name", "career_page_url", "keywords", "config", "status", "created_at", "updated_at", "last_run_at"}
}

func TestGetTargetByNameUnmarshalsConfig(t *testing.T) {
	mock, q := newMockQueries(t)

	now := time.Now()
	configJSON := []byte(`{"job_container_selector":".job-row","title_selector":"h3","url_selector":"a"}`)
	rows := pgxmock.NewRows(targetRowColumns()).
		AddRow("t1", "acme", pgtype.Text{String: "https://acme.example/careers", Valid: true},
			[]string{"engineer"}, configJSON, models.TargetStatusActive,
			now, now, pgtype.Timestamptz{})

	mock.ExpectQuery("SELECT id, name, career_page_url").
		WithArgs("acme").
		WillReturnRows(rows)

	target, err := q.GetTargetByName(context.Background(), "acme")
	if err != nil {
		t.Fatal(err)
	}

	if target.Name != "acme" || target.Status != models.TargetStatusActive {
		t.Errorf("Unexpected target: %+v", target)
	}
	if target.Config.JobContainerSelector != ".job-row" {
		t.Errorf("Expected config decoded from JSONB, got %+v", target.Config)
	}
	if len(target.Keywords) != 1 || target.Keywords[0] != "engineer" {
		t.Errorf("Unexpected keywords: %v", target.Keywords)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetTargetByIDEmptyConfig(t *testing.T) {
	mock, q := newMockQueries(t)

	now := time.Now()
	rows := pgxmock.NewRows(targetRowColumns()).
		AddRow("t1", "acme", pgtype.Text{}, []string(nil), []byte(nil), models.TargetStatusPending,
			now, now, pgtype.Timestamptz{})

	mock.ExpectQuery("SELECT id, name, career_page_url").
		WithArgs("t1").
		WillReturnRows(rows)

	target, err := q.GetTargetByID(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if target.Config.JobContainerSelector != "" {
		t.Errorf("Expected zero config for a pending target, got %+v", target.Config)
	}
}

func TestUpdateTargetConfig(t *testing.T) {
	mock, q := newMockQueries(t)

	cfg := models.ScrapingConfiguration{
		JobContainerSelector: ".job-row",
		TitleSelector:        "h3",
		URLSelector:          "a",
	}
	configJSON, err := cfg.ToJson()
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec("UPDATE targets SET career_page_url").
		WithArgs("t1", pgtype.Text{String: "https://acme.example/careers", Valid: true}, configJSON, models.TargetStatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := q.UpdateTargetConfig(context.Background(), "t1", "https://acme.example/careers", cfg, models.TargetStatusActive); err != nil {
		t.Fatal(err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateTargetStatus(t *testing.T) {
	mock, q := newMockQueries(t)

	mock.ExpectExec("UPDATE targets SET status").
		WithArgs("t1", models.TargetStatusBroken).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := q.UpdateTargetStatus(context.Background(), "t1", models.TargetStatusBroken); err != nil {
		t.Fatal(err)
	}
}
