package work

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hirewatch/scraper-http-service/common/db"
	redisv9 "github.com/redis/go-redis/v9"
)

const (
	workStateKeyPrefix = "work:state:"
	runningState       = "running"
	// workTimeout sets how long a work is considered running before it's considered stale.
	// This prevents works that died without proper cleanup from being stuck in 'running' state forever.
	workTimeout = 24 * time.Hour
)

// WorkManager manages the state of works in Redis.
type WorkManager struct {
	db *db.DB
}

// NewWorkManager creates a new WorkManager backed by the Redis run locks.
func NewWorkManager(dbConn *db.DB) *WorkManager {
	return &WorkManager{
		db: dbConn,
	}
}

// getWorkKey returns the Redis key for a given work ID.
func (wm *WorkManager) getWorkKey(workID string) string {
	return fmt.Sprintf("%s%s", workStateKeyPrefix, workID)
}

// Start marks a work as running. It sets a key in Redis with an expiration.
// If the work is already running, it returns an error.
func (wm *WorkManager) Start(ctx context.Context, workID string) error {
	key := wm.getWorkKey(workID)
	// SetNX to prevent starting a work that is already running.
	ok, err := wm.db.Redis.SetNX(ctx, key, runningState, workTimeout)
	if err != nil {
		return fmt.Errorf("failed to start work %s: %w", workID, err)
	}
	if !ok {
		return fmt.Errorf("work %s is already running", workID)
	}

	return nil
}

// IsRunning checks if a work is currently marked as running.
func (wm *WorkManager) IsRunning(ctx context.Context, workID string) (bool, error) {
	key := wm.getWorkKey(workID)
	state, err := wm.db.Redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redisv9.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get work state for %s: %w", workID, err)
	}
	return state == runningState, nil
}

// removeWork removes a work's state from Redis.
func (wm *WorkManager) removeWork(ctx context.Context, workID string) error {
	key := wm.getWorkKey(workID)
	err := wm.db.Redis.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to remove work %s: %w", workID, err)
	}
	return nil
}

// Complete marks a work as completed by removing its state from Redis.
func (wm *WorkManager) Complete(ctx context.Context, workID string) error {
	if err := wm.removeWork(ctx, workID); err != nil {
		return err
	}

	return nil
}

// Cancel marks a work as cancelled by removing its state from Redis.
func (wm *WorkManager) Cancel(ctx context.Context, workID string) error {
	if err := wm.removeWork(ctx, workID); err != nil {
		return err
	}

	return nil
}

// ListRunningWorks returns a slice of work IDs for all works currently marked as running.
// This can be used on startup to find and resume stale works.
// It uses SCAN to avoid blocking the Redis server.
func (wm *WorkManager) ListRunningWorks(ctx context.Context) ([]string, error) {
	var workIDs []string
	pattern := fmt.Sprintf("%s*", workStateKeyPrefix)

	iter := wm.db.Redis.GetClient().Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		workID := strings.TrimPrefix(key, workStateKeyPrefix)
		workIDs = append(workIDs, workID)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan for running works in Redis: %w", err)
	}

	return workIDs, nil
}

// Resume checks if a work is running and extends its expiration if it is.
func (wm *WorkManager) Resume(ctx context.Context, workID string) (bool, error) {
	key := wm.getWorkKey(workID)
	state, err := wm.db.Redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redisv9.Nil) {
			return false, nil // Not running
		}
		return false, fmt.Errorf("failed to get work state for %s: %w", workID, err)
	}

	if state == runningState {
		// If it's running, extend the expiration time.
		if err := wm.db.Redis.Set(ctx, key, runningState, workTimeout); err != nil {
			return true, fmt.Errorf("failed to extend work session for %s: %w", workID, err)
		}

		return true, nil
	}

	return false, nil
}
