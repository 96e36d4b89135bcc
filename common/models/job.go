package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// JobRecord is a single extracted job posting
type JobRecord struct {
	ID          string      `json:"id"`
	TargetID    string      `json:"target_id"`
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Description pgtype.Text `json:"description"`
	Location    pgtype.Text `json:"location"`
	PostedDate  pgtype.Text `json:"posted_date"`
	CreatedAt   time.Time   `json:"created_at"`
}

// BatchInsertResult summarizes an idempotent batch insert of job records
type BatchInsertResult struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}
