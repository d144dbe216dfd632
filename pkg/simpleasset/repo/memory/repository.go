package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// Repository implements simpleasset.Repository using in-memory storage
type Repository struct {
	mu          sync.RWMutex
	assets      map[uuid.UUID]*simpleasset.StoredAsset
	references  map[uuid.UUID]*simpleasset.AssetReference
	derivatives map[uuid.UUID]*simpleasset.Derivative
}

// New creates a new in-memory repository
func New() simpleasset.Repository {
	return &Repository{
		assets:      make(map[uuid.UUID]*simpleasset.StoredAsset),
		references:  make(map[uuid.UUID]*simpleasset.AssetReference),
		derivatives: make(map[uuid.UUID]*simpleasset.Derivative),
	}
}

// Asset operations

func (r *Repository) CreateAsset(ctx context.Context, asset *simpleasset.StoredAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	assetCopy := *asset
	r.assets[asset.ID] = &assetCopy

	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*simpleasset.StoredAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.assets[id]
	if !exists {
		return nil, simpleasset.ErrAssetNotFound
	}

	assetCopy := *asset
	return &assetCopy, nil
}

func (r *Repository) GetAssetsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*simpleasset.StoredAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[uuid.UUID]*simpleasset.StoredAsset, len(ids))
	for _, id := range ids {
		if asset, exists := r.assets[id]; exists {
			assetCopy := *asset
			out[id] = &assetCopy
		}
	}
	return out, nil
}

func (r *Repository) UpdateAsset(ctx context.Context, asset *simpleasset.StoredAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assets[asset.ID]; !exists {
		return simpleasset.ErrAssetNotFound
	}

	assetCopy := *asset
	r.assets[asset.ID] = &assetCopy

	return nil
}

// Reference-count operations

func (r *Repository) IncRefCount(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, exists := r.assets[id]
	if !exists {
		return simpleasset.ErrAssetNotFound
	}
	asset.RefCount++
	asset.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) DecRefCount(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, exists := r.assets[id]
	if !exists {
		return simpleasset.ErrAssetNotFound
	}
	if asset.RefCount > 0 {
		asset.RefCount--
	}
	asset.UpdatedAt = time.Now().UTC()
	return nil
}

// Housekeeping operations

func (r *Repository) MarkStalePendingActive(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, asset := range r.assets {
		if asset.Status == simpleasset.AssetStatusPending && asset.CreatedAt.Before(cutoff) {
			asset.Status = simpleasset.AssetStatusActive
			asset.UpdatedAt = time.Now().UTC()
			count++
		}
	}
	return count, nil
}

func (r *Repository) MarkDeletableBatch(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, asset := range r.assets {
		if asset.Status == simpleasset.AssetStatusActive && asset.RefCount == 0 && asset.DeletableAt == nil {
			asset.Status = simpleasset.AssetStatusDeletable
			stamp := now
			asset.DeletableAt = &stamp
			asset.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

func (r *Repository) ListPurgeCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*simpleasset.StoredAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*simpleasset.StoredAsset
	for _, asset := range r.assets {
		if asset.Status != simpleasset.AssetStatusDeletable {
			continue
		}
		if asset.DeletableAt == nil || !asset.DeletableAt.Before(cutoff) {
			continue
		}
		assetCopy := *asset
		out = append(out, &assetCopy)
	}
	// Oldest stamps first for a stable batch order
	sort.Slice(out, func(i, j int) bool {
		return out[i].DeletableAt.Before(*out[j].DeletableAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) MarkDeletedBatch(ctx context.Context, ids []uuid.UUID, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, id := range ids {
		asset, exists := r.assets[id]
		if !exists || asset.Status != simpleasset.AssetStatusDeletable {
			continue
		}
		asset.Status = simpleasset.AssetStatusDeleted
		stamp := now
		asset.DeletedAt = &stamp
		asset.UpdatedAt = now
		count++
	}
	return count, nil
}

// Reference operations

func (r *Repository) CreateReference(ctx context.Context, ref *simpleasset.AssetReference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	refCopy := *ref
	r.references[ref.ID] = &refCopy

	return nil
}

func (r *Repository) ReferenceExists(ctx context.Context, assetID uuid.UUID, ownerType simpleasset.OwnerType, ownerID string, purpose simpleasset.Purpose) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ref := range r.references {
		if ref.AssetID == assetID && ref.OwnerType == ownerType && ref.OwnerID == ownerID && ref.Purpose == purpose {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repository) FindReferenceByOwnerAndAsset(ctx context.Context, ownerID string, assetID uuid.UUID) (*simpleasset.AssetReference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ref := range r.references {
		if ref.OwnerID == ownerID && ref.AssetID == assetID {
			refCopy := *ref
			return &refCopy, nil
		}
	}
	return nil, simpleasset.ErrReferenceNotFound
}

func (r *Repository) ListReferences(ctx context.Context, ownerType simpleasset.OwnerType, ownerID string, purpose simpleasset.Purpose) ([]*simpleasset.AssetReference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*simpleasset.AssetReference
	for _, ref := range r.references {
		if ref.OwnerType == ownerType && ref.OwnerID == ownerID && ref.Purpose == purpose {
			refCopy := *ref
			out = append(out, &refCopy)
		}
	}
	sortReferences(out)
	return out, nil
}

func (r *Repository) ListReferencesByOwner(ctx context.Context, ownerType simpleasset.OwnerType, ownerID string) ([]*simpleasset.AssetReference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*simpleasset.AssetReference
	for _, ref := range r.references {
		if ref.OwnerType == ownerType && ref.OwnerID == ownerID {
			refCopy := *ref
			out = append(out, &refCopy)
		}
	}
	sortReferences(out)
	return out, nil
}

func (r *Repository) MaxSortOrder(ctx context.Context, ownerType simpleasset.OwnerType, ownerID string, purpose simpleasset.Purpose) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	max := 0
	for _, ref := range r.references {
		if ref.OwnerType == ownerType && ref.OwnerID == ownerID && ref.Purpose == purpose && ref.SortOrder > max {
			max = ref.SortOrder
		}
	}
	return max, nil
}

func (r *Repository) UpdateReferenceSortOrder(ctx context.Context, refID uuid.UUID, sortOrder int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, exists := r.references[refID]
	if !exists {
		return simpleasset.ErrReferenceNotFound
	}
	ref.SortOrder = sortOrder
	return nil
}

func (r *Repository) DeleteReference(ctx context.Context, refID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.references[refID]; !exists {
		return simpleasset.ErrReferenceNotFound
	}
	delete(r.references, refID)
	return nil
}

// Derivative operations

func (r *Repository) CreateDerivativeIfAbsent(ctx context.Context, d *simpleasset.Derivative) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.derivatives {
		if existing.AssetID == d.AssetID && existing.Kind == d.Kind {
			return false, nil
		}
	}

	dCopy := *d
	r.derivatives[d.ID] = &dCopy
	return true, nil
}

func (r *Repository) ListDerivativesByAsset(ctx context.Context, assetID uuid.UUID) ([]*simpleasset.Derivative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*simpleasset.Derivative
	for _, d := range r.derivatives {
		if d.AssetID == assetID {
			dCopy := *d
			out = append(out, &dCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

// sortReferences orders by sort order, then creation time for stable ties.
func sortReferences(refs []*simpleasset.AssetReference) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].SortOrder != refs[j].SortOrder {
			return refs[i].SortOrder < refs[j].SortOrder
		}
		return refs[i].CreatedAt.Before(refs[j].CreatedAt)
	})
}
