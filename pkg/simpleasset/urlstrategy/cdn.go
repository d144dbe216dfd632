package urlstrategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CDNStrategy generates URLs that point directly to a CDN for downloads
// and uses application endpoints for uploads (hybrid approach)
type CDNStrategy struct {
	CDNBaseURL    string // e.g., "https://cdn.example.com" (for downloads)
	UploadBaseURL string // e.g., "https://api.example.com" or "/api/v1" (for uploads)
}

// NewCDNStrategy creates a new CDN URL strategy with CDN for downloads only
func NewCDNStrategy(cdnBaseURL string) *CDNStrategy {
	cdnBaseURL = strings.TrimSuffix(cdnBaseURL, "/")
	return &CDNStrategy{
		CDNBaseURL:    cdnBaseURL,
		UploadBaseURL: "/api/v1",
	}
}

// NewCDNStrategyWithUpload creates a new CDN URL strategy with custom upload URL
func NewCDNStrategyWithUpload(cdnBaseURL, uploadBaseURL string) *CDNStrategy {
	cdnBaseURL = strings.TrimSuffix(cdnBaseURL, "/")
	uploadBaseURL = strings.TrimSuffix(uploadBaseURL, "/")
	return &CDNStrategy{
		CDNBaseURL:    cdnBaseURL,
		UploadBaseURL: uploadBaseURL,
	}
}

// GenerateDownloadURL creates a direct CDN URL pointing at the object key
func (s *CDNStrategy) GenerateDownloadURL(ctx context.Context, assetID uuid.UUID, objectKey string, storageBackend string) (string, error) {
	if s.CDNBaseURL == "" {
		return "", fmt.Errorf("CDN base URL not configured")
	}
	return fmt.Sprintf("%s/%s", s.CDNBaseURL, objectKey), nil
}

// GenerateUploadURL creates an upload URL using the configured upload base URL
func (s *CDNStrategy) GenerateUploadURL(ctx context.Context, assetID uuid.UUID, objectKey string, storageBackend string) (string, error) {
	if s.UploadBaseURL == "" {
		return "", fmt.Errorf("upload base URL not configured")
	}
	return fmt.Sprintf("%s/images/%s/upload", s.UploadBaseURL, assetID), nil
}
