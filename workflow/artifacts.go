package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/hirewatch/scraper-http-service/common/models"
	"github.com/hirewatch/scraper-http-service/common/storage"
)

// Artifacts writes a workflow's screenshots and its frozen configuration to
// object storage, namespaced under the workflow id. It keeps an inventory of
// what has been archived.
type Artifacts struct {
	storage    storage.StorageService
	bucket     string
	workflowID string

	mu    sync.Mutex
	saved []models.WorkflowArtifact
}

// NewArtifacts creates an artifact store for one workflow. storageService may
// be nil, in which case saves are no-ops.
func NewArtifacts(storageService storage.StorageService, bucket, workflowID string) *Artifacts {
	return &Artifacts{
		storage:    storageService,
		bucket:     bucket,
		workflowID: workflowID,
	}
}

// SaveScreenshot stores a hop screenshot and returns its object name
func (a *Artifacts) SaveScreenshot(ctx context.Context, label string, png []byte) (string, error) {
	if a.storage == nil {
		return "", nil
	}
	objectName := fmt.Sprintf("workflows/%s/%s.png", a.workflowID, label)
	url, err := a.storage.Upload(ctx, a.bucket, objectName, png, "image/png")
	if err != nil {
		return "", err
	}
	a.record(objectName, int64(len(png)), "image/png", url)
	return url, nil
}

// SaveConfig stores the accepted configuration as a JSON artifact
func (a *Artifacts) SaveConfig(ctx context.Context, cfg models.ScrapingConfiguration) (string, error) {
	if a.storage == nil {
		return "", nil
	}
	data, err := cfg.ToJson()
	if err != nil {
		return "", err
	}
	objectName := fmt.Sprintf("workflows/%s/config.json", a.workflowID)
	url, err := a.storage.Upload(ctx, a.bucket, objectName, data, "application/json")
	if err != nil {
		return "", err
	}
	a.record(objectName, int64(len(data)), "application/json", url)
	return url, nil
}

// Saved returns the inventory of archived artifacts
func (a *Artifacts) Saved() []models.WorkflowArtifact {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.WorkflowArtifact, len(a.saved))
	copy(out, a.saved)
	return out
}

func (a *Artifacts) record(fileName string, size int64, contentType, url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, models.WorkflowArtifact{
		FileName:    fileName,
		Size:        size,
		ContentType: contentType,
		URL:         url,
	})
}
