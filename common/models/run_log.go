package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// RunLog records a single execution of a stored scraper against its target
type RunLog struct {
	ID           string      `json:"id"`
	TargetID     string      `json:"target_id"`
	JobsFound    int         `json:"jobs_found"`
	Success      bool        `json:"success"`
	ErrorMessage pgtype.Text `json:"error_message"`
	CreatedAt    time.Time   `json:"created_at"`
}
