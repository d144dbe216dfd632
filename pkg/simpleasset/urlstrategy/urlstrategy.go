package urlstrategy

import (
	"context"

	"github.com/google/uuid"
)

// URLStrategy defines the interface for URL generation strategies
type URLStrategy interface {
	// GenerateDownloadURL creates a public download URL for an asset object
	GenerateDownloadURL(ctx context.Context, assetID uuid.UUID, objectKey string, storageBackend string) (string, error)

	// GenerateUploadURL creates an upload URL for an asset object (optional, may return empty)
	GenerateUploadURL(ctx context.Context, assetID uuid.UUID, objectKey string, storageBackend string) (string, error)
}
