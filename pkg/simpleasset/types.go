package simpleasset

import (
	"time"

	"github.com/google/uuid"
)

// AssetStatus is the domain type for stored-asset lifecycle states.
type AssetStatus string

// Asset status constants (typed).
const (
	AssetStatusPending   AssetStatus = "pending"
	AssetStatusActive    AssetStatus = "active"
	AssetStatusDeletable AssetStatus = "deletable"
	AssetStatusDeleted   AssetStatus = "deleted"
)

// OwnerType identifies the kind of domain entity holding a reference.
type OwnerType string

// Owner type constants (typed).
const (
	OwnerTypePost      OwnerType = "post"
	OwnerTypeCategory  OwnerType = "category"
	OwnerTypeGuestbook OwnerType = "guestbook"
)

// Purpose scopes a reference: the same owner may use the same asset for
// different purposes, each counted separately.
type Purpose string

// Purpose constants (typed).
const (
	PurposeHeadImage Purpose = "head_image"
	PurposeContent   Purpose = "content"
	PurposeIcon      Purpose = "icon"
)

// DerivativeKind names a generated rendition of an original asset.
type DerivativeKind string

// Derivative kind constants (typed).
const (
	KindThumb256 DerivativeKind = "thumb_256"
	KindThumb512 DerivativeKind = "thumb_512"
	KindWebP     DerivativeKind = "webp"
	KindAVIF     DerivativeKind = "avif"
)

// MediaKind classifies uploaded media for preset selection.
type MediaKind string

const (
	MediaImage      MediaKind = "image"
	MediaVideo      MediaKind = "video"
	MediaAttachment MediaKind = "attachment"
)

// StoredAsset represents one uploaded original blob and its metadata record.
//
// RefCount is mutated only through the repository's atomic increment and
// decrement operations; Status is mutated only by the registry
// (pending -> active) and the housekeeping sweeper (active -> deletable ->
// deleted).
type StoredAsset struct {
	ID                 uuid.UUID   `json:"id"`
	Status             AssetStatus `json:"status"`
	StoragePath        string      `json:"storage_path"`
	StorageKey         string      `json:"storage_key"`
	StorageBackendName string      `json:"storage_backend_name"`
	FileName           string      `json:"file_name,omitempty"`
	ByteSize           int64       `json:"byte_size"`
	ContentType        string      `json:"content_type,omitempty"`
	RefCount           int         `json:"ref_count"`
	DeletableAt        *time.Time  `json:"deletable_at,omitempty"`
	DeletedAt          *time.Time  `json:"deleted_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// AssetReference is a many-to-many edge between an owning entity and a
// StoredAsset, scoped by purpose. At most one reference exists per
// (asset, owner, purpose); sort order is dense 1..N within an
// (owner type, owner id, purpose) scope after any reconciliation completes.
type AssetReference struct {
	ID          uuid.UUID `json:"id"`
	AssetID     uuid.UUID `json:"asset_id"`
	OwnerType   OwnerType `json:"owner_type"`
	OwnerID     string    `json:"owner_id"`
	Purpose     Purpose   `json:"purpose"`
	SortOrder   int       `json:"sort_order"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Derivative is a generated rendition of a StoredAsset. At most one
// Derivative exists per (asset, kind); its bytes live under the parent's
// variants/ prefix and are removed together with the original.
type Derivative struct {
	ID          uuid.UUID      `json:"id"`
	AssetID     uuid.UUID      `json:"asset_id"`
	Kind        DerivativeKind `json:"kind"`
	Status      AssetStatus    `json:"status"`
	StorageKey  string         `json:"storage_key"`
	ContentType string         `json:"content_type"`
	Width       *int           `json:"width,omitempty"`
	Height      *int           `json:"height,omitempty"`
	ByteSize    int64          `json:"byte_size"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ReferenceEntry is the compact view returned by ReplaceAllReferences:
// the final reference set of a scope, in final order.
type ReferenceEntry struct {
	ReferenceID uuid.UUID `json:"reference_id"`
	AssetID     uuid.UUID `json:"asset_id"`
	SortOrder   int       `json:"sort_order"`
}

// DerivativeTarget is one requested rendition within a job.
type DerivativeTarget struct {
	Kind   DerivativeKind `json:"kind"`
	Width  int            `json:"width,omitempty"`
	Height int            `json:"height,omitempty"`
}

// Common targets.
func TargetThumb256() DerivativeTarget { return DerivativeTarget{Kind: KindThumb256, Width: 256} }
func TargetThumb512() DerivativeTarget { return DerivativeTarget{Kind: KindThumb512, Width: 512} }
func TargetWebP() DerivativeTarget     { return DerivativeTarget{Kind: KindWebP} }
func TargetAVIF() DerivativeTarget     { return DerivativeTarget{Kind: KindAVIF} }

// DerivativeJob names a parent asset and the renditions to produce. Targets
// wins over Preset when both are set; an empty job resolves targets from the
// preset and the parent's content type at execution time.
type DerivativeJob struct {
	AssetID uuid.UUID          `json:"asset_id"`
	Preset  string             `json:"preset,omitempty"`
	Targets []DerivativeTarget `json:"targets,omitempty"`
}

// TransformResult carries the output of a single transform.
type TransformResult struct {
	Bytes       []byte
	ContentType string
	Width       int
	Height      int
}

// Matches reports whether a content type belongs to this media kind.
func (k MediaKind) Matches(contentType string) bool {
	switch k {
	case MediaImage:
		return hasMimePrefix(contentType, "image/")
	case MediaVideo:
		return hasMimePrefix(contentType, "video/")
	case MediaAttachment:
		return contentType != ""
	}
	return false
}

func hasMimePrefix(contentType, prefix string) bool {
	return len(contentType) >= len(prefix) && contentType[:len(prefix)] == prefix
}
