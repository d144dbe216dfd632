package simpleasset

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrAssetNotFound indicates a stored asset was not found
	ErrAssetNotFound = errors.New("asset not found")

	// ErrReferenceNotFound indicates an asset reference was not found
	ErrReferenceNotFound = errors.New("asset reference not found")

	// ErrDerivativeNotFound indicates a derivative was not found
	ErrDerivativeNotFound = errors.New("derivative not found")

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrUploadFailed indicates an upload operation failed
	ErrUploadFailed = errors.New("upload failed")

	// ErrUnsupportedTarget indicates a transformer cannot produce the requested kind
	ErrUnsupportedTarget = errors.New("unsupported derivative target")
)

// AssetError represents an error related to asset operations
type AssetError struct {
	AssetID uuid.UUID
	Op      string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// ReferenceError represents an error related to reference-ledger operations
type ReferenceError struct {
	OwnerType OwnerType
	OwnerID   string
	Op        string
	Err       error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference operation %s failed for owner %s/%s: %v", e.Op, e.OwnerType, e.OwnerID, e.Err)
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob-store operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
