package simpleasset

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes a single object; deleting a missing key is not an error
	Delete(ctx context.Context, objectKey string) error

	// DeletePrefix deletes every object under the given key prefix and
	// returns the number of objects removed
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// GetDownloadURL returns a URL for downloading content
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// GetUploadURL returns a URL for uploading content
	GetUploadURL(ctx context.Context, objectKey string) (string, error)
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// Repository defines the interface for asset, reference and derivative
// persistence. Reference-count mutations are expressed as their own
// operations so implementations can make them atomic at the storage layer
// (a single conditional UPDATE, or a mutation under the repository lock)
// instead of read-modify-write in application memory.
type Repository interface {
	// Asset operations
	CreateAsset(ctx context.Context, asset *StoredAsset) error
	GetAsset(ctx context.Context, id uuid.UUID) (*StoredAsset, error)
	GetAssetsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*StoredAsset, error)
	UpdateAsset(ctx context.Context, asset *StoredAsset) error

	// Reference-count operations (atomic)
	IncRefCount(ctx context.Context, id uuid.UUID) error
	// DecRefCount decrements, flooring at zero
	DecRefCount(ctx context.Context, id uuid.UUID) error

	// Housekeeping operations. MarkStalePendingActive promotes pending rows
	// older than cutoff to active; MarkDeletableBatch transitions active,
	// zero-reference, not-yet-stamped rows to deletable in one conditional
	// update; MarkDeletedBatch flips the given deletable rows to deleted.
	MarkStalePendingActive(ctx context.Context, cutoff time.Time) (int, error)
	MarkDeletableBatch(ctx context.Context, now time.Time) (int, error)
	ListPurgeCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*StoredAsset, error)
	MarkDeletedBatch(ctx context.Context, ids []uuid.UUID, now time.Time) (int, error)

	// Reference operations
	CreateReference(ctx context.Context, ref *AssetReference) error
	ReferenceExists(ctx context.Context, assetID uuid.UUID, ownerType OwnerType, ownerID string, purpose Purpose) (bool, error)
	FindReferenceByOwnerAndAsset(ctx context.Context, ownerID string, assetID uuid.UUID) (*AssetReference, error)
	ListReferences(ctx context.Context, ownerType OwnerType, ownerID string, purpose Purpose) ([]*AssetReference, error)
	ListReferencesByOwner(ctx context.Context, ownerType OwnerType, ownerID string) ([]*AssetReference, error)
	MaxSortOrder(ctx context.Context, ownerType OwnerType, ownerID string, purpose Purpose) (int, error)
	UpdateReferenceSortOrder(ctx context.Context, refID uuid.UUID, sortOrder int) error
	DeleteReference(ctx context.Context, refID uuid.UUID) error

	// Derivative operations. CreateDerivativeIfAbsent reports false when a
	// derivative for (asset, kind) already exists; a racing duplicate insert
	// is treated the same way, never as an error.
	CreateDerivativeIfAbsent(ctx context.Context, d *Derivative) (bool, error)
	ListDerivativesByAsset(ctx context.Context, assetID uuid.UUID) ([]*Derivative, error)
}

// Transformer produces derivative renditions from original bytes.
// Implementations declare which content types they can read; a target kind
// they cannot produce fails that target only.
type Transformer interface {
	// Supports returns true if the transformer can read the given content type
	Supports(contentType string) bool

	// Transform produces one rendition from the original bytes
	Transform(ctx context.Context, original []byte, target DerivativeTarget) (*TransformResult, error)
}

// PresetResolver maps a named preset and the parent's content type to a
// target list. An empty result means nothing to generate.
type PresetResolver interface {
	Resolve(preset string, contentType string) []DerivativeTarget
}
