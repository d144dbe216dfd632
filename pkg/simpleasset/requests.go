package simpleasset

import (
	"io"

	"github.com/google/uuid"
)

// StoreAssetRequest contains parameters for storing a new original asset.
type StoreAssetRequest struct {
	Reader             io.Reader
	FileName           string
	ContentType        string
	ByteSize           int64
	StorageBackendName string
}

// UploadImageRequest contains parameters for the image upload entry point.
// Preset selects a derivative preset by name; empty means the default for the
// media kind.
type UploadImageRequest struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	ByteSize    int64
	Kind        MediaKind
	Preset      string
}

// UploadImageResponse is returned by UploadImage.
type UploadImageResponse struct {
	AssetID uuid.UUID `json:"asset_id"`
	URL     string    `json:"url"`
}

// AttachReferenceRequest contains parameters for attaching an asset to an
// owning entity. SortOrder zero means "append after the scope's current max".
type AttachReferenceRequest struct {
	AssetID     uuid.UUID
	OwnerType   OwnerType
	OwnerID     string
	Purpose     Purpose
	SortOrder   int
	DisplayName string
}

// ReorderReferencesRequest renumbers a scope's references densely following
// the given reference-id sequence.
type ReorderReferencesRequest struct {
	OwnerType    OwnerType
	OwnerID      string
	Purpose      Purpose
	ReferenceIDs []uuid.UUID
}

// ReplaceAllReferencesRequest reconciles a scope's reference set to exactly
// the given asset ids, in the given order.
type ReplaceAllReferencesRequest struct {
	OwnerType OwnerType
	OwnerID   string
	Purpose   Purpose
	AssetIDs  []uuid.UUID
}

// DetachAllReferencesRequest removes every reference held by an owner.
// Purpose empty means all purposes.
type DetachAllReferencesRequest struct {
	OwnerType OwnerType
	OwnerID   string
	Purpose   Purpose
}
