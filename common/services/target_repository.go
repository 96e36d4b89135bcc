package services

import (
	"context"
	"time"

	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/repository"
)

// TargetRepository is a PostgreSQL implementation of TargetService
type TargetRepository struct {
	db *repository.Queries
}

// NewTargetRepository creates a new PostgreSQL TargetRepository
func NewTargetRepository(db *repository.Queries) TargetService {
	return &TargetRepository{
		db: db,
	}
}

// Create registers a new scrape target
func (r *TargetRepository) Create(ctx context.Context, arg repository.CreateTargetParams) (models.Target, error) {
	return r.db.CreateTarget(ctx, arg)
}

// GetByName gets a target by its unique name
func (r *TargetRepository) GetByName(ctx context.Context, name string) (models.Target, error) {
	return r.db.GetTargetByName(ctx, name)
}

// GetByID gets a target by id
func (r *TargetRepository) GetByID(ctx context.Context, id string) (models.Target, error) {
	return r.db.GetTargetByID(ctx, id)
}

// List returns a page of targets with the total count
func (r *TargetRepository) List(ctx context.Context, limit, offset int) ([]models.Target, int64, error) {
	targets, err := r.db.ListTargets(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.db.CountTargets(ctx)
	if err != nil {
		return nil, 0, err
	}
	return targets, total, nil
}

// GetActive returns every target with a working stored configuration
func (r *TargetRepository) GetActive(ctx context.Context) ([]models.Target, error) {
	return r.db.ListActiveTargets(ctx)
}

// StoreConfig persists a validated configuration and activates the target
func (r *TargetRepository) StoreConfig(ctx context.Context, id string, careerPageURL string, config models.ScrapingConfiguration) error {
	return r.db.UpdateTargetConfig(ctx, id, careerPageURL, config, models.TargetStatusActive)
}

// UpdateStatus transitions a target's lifecycle status
func (r *TargetRepository) UpdateStatus(ctx context.Context, id string, status models.TargetStatus) error {
	return r.db.UpdateTargetStatus(ctx, id, status)
}

// TouchRun records the time of the latest run
func (r *TargetRepository) TouchRun(ctx context.Context, id string, at time.Time) error {
	return r.db.TouchTargetRun(ctx, id, at)
}
