package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/hirewatch/scraper-http-service/common/models"
)

const insertJob = `
INSERT INTO jobs (id, target_id, title, url, description, location, posted_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (url) DO NOTHING
`

// InsertJobsBatch inserts job records idempotently, keyed on the unique url.
// Records missing a title or url are counted as errors and skipped; rows the
// database rejects on conflict are counted as duplicates.
func (q *Queries) InsertJobsBatch(ctx context.Context, jobs []models.JobRecord) (models.BatchInsertResult, error) {
	var result models.BatchInsertResult

	batch := &pgx.Batch{}
	for _, job := range jobs {
		if job.Title == "" || job.URL == "" {
			result.Errors++
			continue
		}
		batch.Queue(insertJob, job.ID, job.TargetID, job.Title, job.URL, job.Description, job.Location, job.PostedDate)
	}
	if batch.Len() == 0 {
		return result, nil
	}

	br := q.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			result.Errors++
			continue
		}
		if tag.RowsAffected() > 0 {
			result.Added++
		} else {
			result.Duplicates++
		}
	}
	return result, nil
}

const getJobURLsByTarget = `SELECT url FROM jobs WHERE target_id = $1`

// GetJobURLsByTarget returns every known job url for a target
func (q *Queries) GetJobURLsByTarget(ctx context.Context, targetID string) ([]string, error) {
	rows, err := q.db.Query(ctx, getJobURLsByTarget, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

const listJobs = `
SELECT id, target_id, title, url, description, location, posted_date, created_at
FROM jobs
WHERE ($1 = '' OR target_id = $1)
  AND ($2 = '' OR title ILIKE '%' || $2 || '%')
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

// ListJobsParams holds the filters for ListJobs
type ListJobsParams struct {
	TargetID string
	Search   string
	Limit    int
	Offset   int
}

// ListJobs returns a filtered page of job records, newest first
func (q *Queries) ListJobs(ctx context.Context, arg ListJobsParams) ([]models.JobRecord, error) {
	rows, err := q.db.Query(ctx, listJobs, arg.TargetID, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.JobRecord
	for rows.Next() {
		var j models.JobRecord
		if err := rows.Scan(&j.ID, &j.TargetID, &j.Title, &j.URL, &j.Description, &j.Location, &j.PostedDate, &j.CreatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

const countJobs = `
SELECT count(*) FROM jobs
WHERE ($1 = '' OR target_id = $1)
  AND ($2 = '' OR title ILIKE '%' || $2 || '%')
`

// CountJobs returns the number of job records matching the filters
func (q *Queries) CountJobs(ctx context.Context, targetID, search string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countJobs, targetID, search).Scan(&count)
	return count, err
}
