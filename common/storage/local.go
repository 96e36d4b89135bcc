package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage implements the StorageService interface on a local directory.
// Objects land under <baseDir>/<bucket>/<objectName>.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a local filesystem storage service rooted at baseDir
func NewLocalStorage(baseDir string) (StorageService, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("local storage base directory is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", baseDir, err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

func (l *LocalStorage) objectPath(bucket, objectName string) string {
	return filepath.Join(l.baseDir, bucket, filepath.FromSlash(objectName))
}

// Upload writes a file under the base directory and returns its path
func (l *LocalStorage) Upload(ctx context.Context, bucket, objectName string, content []byte, contentType string) (string, error) {
	return l.StreamUpload(ctx, bucket, objectName, bytes.NewReader(content), contentType)
}

// Download reads a file back from the base directory
func (l *LocalStorage) Download(ctx context.Context, bucket, objectName string) ([]byte, error) {
	data, err := os.ReadFile(l.objectPath(bucket, objectName))
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s in bucket %s: %w", objectName, bucket, err)
	}
	return data, nil
}

// Delete removes a file from the base directory
func (l *LocalStorage) Delete(ctx context.Context, bucket, objectName string) error {
	if err := os.Remove(l.objectPath(bucket, objectName)); err != nil {
		return fmt.Errorf("failed to delete object %s from bucket %s: %w", objectName, bucket, err)
	}
	return nil
}

// GetSignedURL returns the local path, local files need no signing
func (l *LocalStorage) GetSignedURL(ctx context.Context, bucket, objectName string, expires int64) (string, error) {
	return l.objectPath(bucket, objectName), nil
}

// StreamUpload writes a file from a reader and returns its path
func (l *LocalStorage) StreamUpload(ctx context.Context, bucket, objectName string, reader io.Reader, contentType string) (string, error) {
	path := l.objectPath(bucket, objectName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create object file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	return path, nil
}
