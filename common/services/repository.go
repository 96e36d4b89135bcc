package services

import (
	"context"
	"time"

	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/repository"
)

// TargetService defines the interface for target database operations
type TargetService interface {
	// Create registers a new scrape target
	Create(ctx context.Context, arg repository.CreateTargetParams) (models.Target, error)

	// GetByName gets a target by its unique name
	GetByName(ctx context.Context, name string) (models.Target, error)

	// GetByID gets a target by id
	GetByID(ctx context.Context, id string) (models.Target, error)

	// List returns a page of targets with the total count
	List(ctx context.Context, limit, offset int) ([]models.Target, int64, error)

	// GetActive returns every target with a working stored configuration
	GetActive(ctx context.Context) ([]models.Target, error)

	// StoreConfig persists a validated configuration for a target
	StoreConfig(ctx context.Context, id string, careerPageURL string, config models.ScrapingConfiguration) error

	// UpdateStatus transitions a target's lifecycle status
	UpdateStatus(ctx context.Context, id string, status models.TargetStatus) error

	// TouchRun records the time of the latest run
	TouchRun(ctx context.Context, id string, at time.Time) error
}

// JobService defines the interface for job record database operations
type JobService interface {
	// SaveBatch inserts job records idempotently and reports added/duplicates/errors
	SaveBatch(ctx context.Context, targetID string, jobs []models.JobRecord) (models.BatchInsertResult, error)

	// KnownURLs returns every persisted job url for a target
	KnownURLs(ctx context.Context, targetID string) ([]string, error)

	// List returns a filtered page of job records with the total count
	List(ctx context.Context, arg repository.ListJobsParams) ([]models.JobRecord, int64, error)
}

// RunLogService defines the interface for run log database operations
type RunLogService interface {
	// Record stores the outcome of one scraper execution
	Record(ctx context.Context, targetID string, jobsFound int, runErr error) error

	// History returns a target's execution history, newest first
	History(ctx context.Context, targetID string, limit, offset int) ([]models.RunLog, error)
}
