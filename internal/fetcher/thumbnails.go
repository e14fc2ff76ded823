package fetcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/binyominzeev/vidfaq/internal/logging"
)

// ObjectStore is the subset of object storage used for thumbnails
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName, filePath string) (int64, error)
	Delete(ctx context.Context, objectName string) error
}

// ThumbnailSource produces a local thumbnail file for a video URL
type ThumbnailSource interface {
	FetchThumbnail(ctx context.Context, sourceURL string) (string, error)
}

// ThumbnailStore fetches thumbnails and keeps them in object storage
type ThumbnailStore struct {
	source  ThumbnailSource
	objects ObjectStore
	bucket  string
	logger  *logging.Logger
}

// NewThumbnailStore creates a thumbnail store
func NewThumbnailStore(source ThumbnailSource, objects ObjectStore, bucket string, logger *logging.Logger) *ThumbnailStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ThumbnailStore{source: source, objects: objects, bucket: bucket, logger: logger}
}

// StoreThumbnail fetches the thumbnail of sourceURL and uploads it under keyPrefix
// plus the image extension. It returns the object key.
func (t *ThumbnailStore) StoreThumbnail(ctx context.Context, sourceURL, keyPrefix string) (string, error) {
	start := time.Now()
	path, err := t.source.FetchThumbnail(ctx, sourceURL)
	t.logger.LogFetchOperation("thumbnail", sourceURL, time.Since(start), err)
	if err != nil {
		return "", err
	}
	defer Cleanup(path)

	key := keyPrefix + strings.ToLower(filepath.Ext(path))

	start = time.Now()
	size, err := t.objects.UploadFile(ctx, key, path)
	t.logger.LogStorageOperation("upload", t.bucket, key, size, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("failed to store thumbnail: %w", err)
	}
	return key, nil
}

// RemoveThumbnail deletes a stored thumbnail
func (t *ThumbnailStore) RemoveThumbnail(ctx context.Context, key string) error {
	start := time.Now()
	err := t.objects.Delete(ctx, key)
	t.logger.LogStorageOperation("delete", t.bucket, key, 0, time.Since(start), err)
	return err
}
