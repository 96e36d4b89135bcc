package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/repository"
)

// RunLogRepository is a PostgreSQL implementation of RunLogService
type RunLogRepository struct {
	db *repository.Queries
}

// NewRunLogRepository creates a new PostgreSQL RunLogRepository
func NewRunLogRepository(db *repository.Queries) RunLogService {
	return &RunLogRepository{
		db: db,
	}
}

// Record stores the outcome of one scraper execution
func (r *RunLogRepository) Record(ctx context.Context, targetID string, jobsFound int, runErr error) error {
	errMsg := pgtype.Text{}
	if runErr != nil {
		errMsg.String = runErr.Error()
		errMsg.Valid = true
	}

	return r.db.CreateRunLog(ctx, repository.CreateRunLogParams{
		ID:           uuid.New().String(),
		TargetID:     targetID,
		JobsFound:    jobsFound,
		Success:      runErr == nil,
		ErrorMessage: errMsg,
	})
}

// History returns a target's execution history, newest first
func (r *RunLogRepository) History(ctx context.Context, targetID string, limit, offset int) ([]models.RunLog, error) {
	return r.db.ListRunLogsByTarget(ctx, targetID, limit, offset)
}
