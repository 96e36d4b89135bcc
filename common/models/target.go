package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// TargetStatus represents the lifecycle state of a scrape target
type TargetStatus string

const (
	// TargetStatusPending indicates no scraper has been built for the target yet
	TargetStatusPending TargetStatus = "pending"
	// TargetStatusActive indicates the stored configuration produced jobs on its last run
	TargetStatusActive TargetStatus = "active"
	// TargetStatusBroken indicates the last scheduled run failed
	TargetStatusBroken TargetStatus = "broken"
)

// Target is a company job board registered for scraping
type Target struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	CareerPageURL pgtype.Text           `json:"career_page_url"`
	Keywords      []string              `json:"keywords"`
	Config        ScrapingConfiguration `json:"config"`
	Status        TargetStatus          `json:"status"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	LastRunAt     pgtype.Timestamptz    `json:"last_run_at"`
}
