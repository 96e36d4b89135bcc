package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hirewatch/scraper-http-service/common/models"
)

const createTarget = `
INSERT INTO targets (id, name, career_page_url, keywords, config, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())
RETURNING id, name, career_page_url, keywords, config, status, created_at, updated_at, last_run_at
`

// CreateTargetParams holds the inputs for CreateTarget
type CreateTargetParams struct {
	ID            string
	Name          string
	CareerPageURL pgtype.Text
	Keywords      []string
	Config        models.ScrapingConfiguration
	Status        models.TargetStatus
}

// CreateTarget registers a new scrape target
func (q *Queries) CreateTarget(ctx context.Context, arg CreateTargetParams) (models.Target, error) {
	configJSON, err := arg.Config.ToJson()
	if err != nil {
		return models.Target{}, fmt.Errorf("marshaling target config: %w", err)
	}

	row := q.db.QueryRow(ctx, createTarget,
		arg.ID, arg.Name, arg.CareerPageURL, arg.Keywords, configJSON, arg.Status)
	return scanTarget(row)
}

const getTargetByName = `
SELECT id, name, career_page_url, keywords, config, status, created_at, updated_at, last_run_at
FROM targets WHERE name = $1
`

// GetTargetByName looks a target up by its unique name
func (q *Queries) GetTargetByName(ctx context.Context, name string) (models.Target, error) {
	row := q.db.QueryRow(ctx, getTargetByName, name)
	return scanTarget(row)
}

const getTargetByID = `
SELECT id, name, career_page_url, keywords, config, status, created_at, updated_at, last_run_at
FROM targets WHERE id = $1
`

// GetTargetByID looks a target up by id
func (q *Queries) GetTargetByID(ctx context.Context, id string) (models.Target, error) {
	row := q.db.QueryRow(ctx, getTargetByID, id)
	return scanTarget(row)
}

const listTargets = `
SELECT id, name, career_page_url, keywords, config, status, created_at, updated_at, last_run_at
FROM targets ORDER BY name LIMIT $1 OFFSET $2
`

// ListTargets returns a page of targets ordered by name
func (q *Queries) ListTargets(ctx context.Context, limit, offset int) ([]models.Target, error) {
	rows, err := q.db.Query(ctx, listTargets, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []models.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

const countTargets = `SELECT count(*) FROM targets`

// CountTargets returns the total number of targets
func (q *Queries) CountTargets(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countTargets).Scan(&count)
	return count, err
}

const listActiveTargets = `
SELECT id, name, career_page_url, keywords, config, status, created_at, updated_at, last_run_at
FROM targets WHERE status = 'active' ORDER BY name
`

// ListActiveTargets returns every target with a working stored configuration
func (q *Queries) ListActiveTargets(ctx context.Context) ([]models.Target, error) {
	rows, err := q.db.Query(ctx, listActiveTargets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []models.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

const updateTargetConfig = `
UPDATE targets SET career_page_url = $2, config = $3, status = $4, updated_at = now()
WHERE id = $1
`

// UpdateTargetConfig stores a validated configuration and the board URL it applies to
func (q *Queries) UpdateTargetConfig(ctx context.Context, id string, careerPageURL string, config models.ScrapingConfiguration, status models.TargetStatus) error {
	configJSON, err := config.ToJson()
	if err != nil {
		return fmt.Errorf("marshaling target config: %w", err)
	}
	url := pgtype.Text{String: careerPageURL, Valid: careerPageURL != ""}
	_, err = q.db.Exec(ctx, updateTargetConfig, id, url, configJSON, status)
	return err
}

const updateTargetStatus = `
UPDATE targets SET status = $2, updated_at = now() WHERE id = $1
`

// UpdateTargetStatus transitions a target's lifecycle status
func (q *Queries) UpdateTargetStatus(ctx context.Context, id string, status models.TargetStatus) error {
	_, err := q.db.Exec(ctx, updateTargetStatus, id, status)
	return err
}

const touchTargetRun = `
UPDATE targets SET last_run_at = $2, updated_at = now() WHERE id = $1
`

// TouchTargetRun records the time of the latest run against a target
func (q *Queries) TouchTargetRun(ctx context.Context, id string, at time.Time) error {
	_, err := q.db.Exec(ctx, touchTargetRun, id, at)
	return err
}

func scanTarget(row pgx.Row) (models.Target, error) {
	var t models.Target
	var configJSON []byte
	if err := row.Scan(&t.ID, &t.Name, &t.CareerPageURL, &t.Keywords, &configJSON,
		&t.Status, &t.CreatedAt, &t.UpdatedAt, &t.LastRunAt); err != nil {
		return models.Target{}, err
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &t.Config); err != nil {
			return models.Target{}, fmt.Errorf("unmarshaling target config: %w", err)
		}
	}
	return t, nil
}
