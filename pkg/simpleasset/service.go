package simpleasset

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service is the main business-logic interface for asset management.
type Service interface {
	// Asset registry
	StoreAsset(ctx context.Context, req StoreAssetRequest) (*StoredAsset, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*StoredAsset, error)

	// Upload entry point
	UploadImage(ctx context.Context, req UploadImageRequest) (*UploadImageResponse, error)

	// Reference ledger
	AttachReference(ctx context.Context, req AttachReferenceRequest) (*AssetReference, error)
	DetachReference(ctx context.Context, ownerID string, assetID uuid.UUID) error
	ReorderReferences(ctx context.Context, req ReorderReferencesRequest) error
	ReplaceAllReferences(ctx context.Context, req ReplaceAllReferencesRequest) ([]ReferenceEntry, error)
	DetachAllReferences(ctx context.Context, req DetachAllReferencesRequest) (int, error)
	ListReferences(ctx context.Context, ownerType OwnerType, ownerID string, purpose Purpose) ([]*AssetReference, error)

	// Derivatives
	EnqueueDerivativeJob(ctx context.Context, job DerivativeJob)
	ProcessDerivativeJob(ctx context.Context, job DerivativeJob) error
	ListDerivatives(ctx context.Context, assetID uuid.UUID) ([]*Derivative, error)

	// Housekeeping
	SweepMarkDeletable(ctx context.Context) (int, error)
	PurgeExpiredDeletables(ctx context.Context, grace time.Duration) (int, error)

	// Close drains the derivative dispatcher. Enqueue no jobs after Close.
	Close() error
}
