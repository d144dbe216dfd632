package urlstrategy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// BlobStore interface for URL generation (to avoid circular imports)
type BlobStore interface {
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)
	GetUploadURL(ctx context.Context, objectKey string) (string, error)
}

// StorageDelegatedStrategy delegates URL generation to the storage backends,
// which lets S3-style backends hand out presigned URLs.
type StorageDelegatedStrategy struct {
	BlobStores map[string]BlobStore
}

// NewStorageDelegatedStrategy creates a new storage-delegated URL strategy
func NewStorageDelegatedStrategy(blobStores map[string]BlobStore) *StorageDelegatedStrategy {
	return &StorageDelegatedStrategy{
		BlobStores: blobStores,
	}
}

// GenerateDownloadURL delegates to the storage backend's GetDownloadURL method
func (s *StorageDelegatedStrategy) GenerateDownloadURL(ctx context.Context, assetID uuid.UUID, objectKey string, storageBackend string) (string, error) {
	backend, exists := s.BlobStores[storageBackend]
	if !exists {
		return "", fmt.Errorf("storage backend %s not found", storageBackend)
	}
	return backend.GetDownloadURL(ctx, objectKey, "")
}

// GenerateUploadURL delegates to the storage backend's GetUploadURL method
func (s *StorageDelegatedStrategy) GenerateUploadURL(ctx context.Context, assetID uuid.UUID, objectKey string, storageBackend string) (string, error) {
	backend, exists := s.BlobStores[storageBackend]
	if !exists {
		return "", fmt.Errorf("storage backend %s not found", storageBackend)
	}
	return backend.GetUploadURL(ctx, objectKey)
}
