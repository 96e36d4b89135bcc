package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hirewatch/scraper-http-service/common/models"
)

const createRunLog = `
INSERT INTO run_logs (id, target_id, jobs_found, success, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, now())
`

// CreateRunLogParams holds the inputs for CreateRunLog
type CreateRunLogParams struct {
	ID           string
	TargetID     string
	JobsFound    int
	Success      bool
	ErrorMessage pgtype.Text
}

// CreateRunLog records a scraper execution against a target
func (q *Queries) CreateRunLog(ctx context.Context, arg CreateRunLogParams) error {
	_, err := q.db.Exec(ctx, createRunLog,
		arg.ID, arg.TargetID, arg.JobsFound, arg.Success, arg.ErrorMessage)
	return err
}

const listRunLogsByTarget = `
SELECT id, target_id, jobs_found, success, error_message, created_at
FROM run_logs WHERE target_id = $1
ORDER BY created_at DESC LIMIT $2 OFFSET $3
`

// ListRunLogsByTarget returns a target's execution history, newest first
func (q *Queries) ListRunLogsByTarget(ctx context.Context, targetID string, limit, offset int) ([]models.RunLog, error) {
	rows, err := q.db.Query(ctx, listRunLogsByTarget, targetID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.RunLog
	for rows.Next() {
		var l models.RunLog
		if err := rows.Scan(&l.ID, &l.TargetID, &l.JobsFound, &l.Success, &l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
