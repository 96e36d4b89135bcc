package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/common/redis"
	"github.com/hirewatch/scraper-http-service/repository"
)

const knownURLCacheTTL = 30 * time.Minute

// JobRepository is a PostgreSQL implementation of JobService with a Redis
// cache in front of the per-target known-URL set
type JobRepository struct {
	db    *repository.Queries
	redis *redis.RedisClient
}

// NewJobRepository creates a new PostgreSQL JobRepository
func NewJobRepository(db *repository.Queries, redisClient *redis.RedisClient) JobService {
	return &JobRepository{
		db:    db,
		redis: redisClient,
	}
}

// SaveBatch inserts job records idempotently and reports added/duplicates/errors
func (r *JobRepository) SaveBatch(ctx context.Context, targetID string, jobs []models.JobRecord) (models.BatchInsertResult, error) {
	result, err := r.db.InsertJobsBatch(ctx, jobs)
	if err != nil {
		return result, err
	}

	if r.redis != nil && result.Added > 0 {
		key := knownURLKey(targetID)
		urls := lo.FilterMap(jobs, func(j models.JobRecord, _ int) (interface{}, bool) {
			return j.URL, j.URL != ""
		})
		if err := r.redis.SAdd(ctx, key, urls...); err != nil {
			log.Warn().Err(err).Str("targetID", targetID).Msg("Failed to update known-URL cache")
		} else if err := r.redis.Expire(ctx, key, knownURLCacheTTL); err != nil {
			log.Warn().Err(err).Str("targetID", targetID).Msg("Failed to set known-URL cache TTL")
		}
	}

	return result, nil
}

// KnownURLs returns every persisted job url for a target, preferring the cache
func (r *JobRepository) KnownURLs(ctx context.Context, targetID string) ([]string, error) {
	key := knownURLKey(targetID)

	if r.redis != nil {
		if cached, err := r.redis.SMembers(ctx, key); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	urls, err := r.db.GetJobURLsByTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if r.redis != nil && len(urls) > 0 {
		members := lo.Map(urls, func(u string, _ int) interface{} { return u })
		if err := r.redis.SAdd(ctx, key, members...); err != nil {
			log.Warn().Err(err).Str("targetID", targetID).Msg("Failed to warm known-URL cache")
		} else if err := r.redis.Expire(ctx, key, knownURLCacheTTL); err != nil {
			log.Warn().Err(err).Str("targetID", targetID).Msg("Failed to set known-URL cache TTL")
		}
	}

	return urls, nil
}

// List returns a filtered page of job records with the total count
func (r *JobRepository) List(ctx context.Context, arg repository.ListJobsParams) ([]models.JobRecord, int64, error) {
	jobs, err := r.db.ListJobs(ctx, arg)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.db.CountJobs(ctx, arg.TargetID, arg.Search)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func knownURLKey(targetID string) string {
	return fmt.Sprintf("target:%s:job_urls", targetID)
}
