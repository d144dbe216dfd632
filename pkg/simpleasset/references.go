package simpleasset

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Gap between appended sort orders. Leaves room for manual insertion between
// neighbors without renumbering; reconciliation compacts to dense 1..N.
const sortOrderGap = 10

// Reference ledger operations

func (s *service) AttachReference(ctx context.Context, req AttachReferenceRequest) (*AssetReference, error) {
	if _, err := s.repository.GetAsset(ctx, req.AssetID); err != nil {
		return nil, &ReferenceError{OwnerType: req.OwnerType, OwnerID: req.OwnerID, Op: "attach", Err: err}
	}

	// Idempotent per (asset, owner, purpose): a repeated attach returns the
	// existing edge without touching the count.
	current, err := s.repository.ListReferences(ctx, req.OwnerType, req.OwnerID, req.Purpose)
	if err != nil {
		return nil, &ReferenceError{OwnerType: req.OwnerType, OwnerID: req.OwnerID, Op: "attach", Err: err}
	}
	for _, ref := range current {
		if ref.AssetID == req.AssetID {
			return ref, nil
		}
	}

	sortOrder := req.SortOrder
	if sortOrder <= 0 {
		max, err := s.repository.MaxSortOrder(ctx, req.OwnerType, req.OwnerID, req.Purpose)
		if err != nil {
			return nil, &ReferenceError{OwnerType: req.OwnerType, OwnerID: req.OwnerID, Op: "attach", Err: err}
		}
		sortOrder = max + sortOrderGap
	}

	ref := &AssetReference{
		ID:          uuid.New(),
		AssetID:     req.AssetID,
		OwnerType:   req.OwnerType,
		OwnerID:     req.OwnerID,
		Purpose:     req.Purpose,
		SortOrder:   sortOrder,
		DisplayName: req.DisplayName,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repository.CreateReference(ctx, ref); err != nil {
		return nil, &ReferenceError{OwnerType: req.OwnerType, OwnerID: req.OwnerID, Op: "attach", Err: err}
	}
	if err := s.repository.IncRefCount(ctx, req.AssetID); err != nil {
		return nil, &ReferenceError{OwnerType: req.OwnerType, OwnerID: req.OwnerID, Op: "attach", Err: err}
	}
	return ref, nil
}

func (s *service) DetachReference(ctx context.Context, ownerID string, assetID uuid.UUID) error {
	ref, err := s.repository.FindReferenceByOwnerAndAsset(ctx, ownerID, assetID)
	if err != nil {
		if errors.Is(err, ErrReferenceNotFound) {
			return nil
		}
		return &ReferenceError{OwnerID: ownerID, Op: "detach", Err: err}
	}
	if err := s.repository.DeleteReference(ctx, ref.ID); err != nil {
		return &ReferenceError{OwnerType: ref.OwnerType, OwnerID: ownerID, Op: "detach", Err: err}
	}
	if err := s.repository.DecRefCount(ctx, assetID); err != nil {
		return &ReferenceError{OwnerType: ref.OwnerType, OwnerID: ownerID, Op: "detach", Err: err}
	}
	return nil
}

// ReorderReferences renumbers the scope densely from 1, following the order
// of the given reference ids. Ids not in the scope are skipped without
// consuming a slot; references omitted from the sequence keep their stored
// sort order.
func (s *service) ReorderReferences(ctx context.Context, req ReorderReferencesRequest) error {
	refs, err := s.repository.ListReferences(ctx, req.OwnerType, req.OwnerID, req.Purpose)
	if err != nil {
		return &ReferenceError{OwnerType: req.OwnerType, OwnerID: req.OwnerID, Op: "reorder", Err: err}
	}

	byID := make(map[uuid.UUID]*AssetReference, len(refs))
	for _, ref := range refs {
		byID[ref.ID] = ref
	}

	order := 1
	for _, id := range req.ReferenceIDs {
		ref, ok := byID[id]
		if !ok {
			continue
		}
		delete(byID, id)
		if ref.SortOrder != order {
			if err := s.repository.UpdateReferenceSortOrder(ctx, ref.ID, order); err != nil {
				return &ReferenceError{OwnerType: req.OwnerType, OwnerID: req.OwnerID, Op: "reorder", Err: err}
			}
		}
		order++
	}
	return nil
}

// ReplaceAllReferences reconciles the scope's reference set to exactly the
// given asset ids, in the given order. All desired assets are validated
// before any mutation; removed references decrement their asset's count,
// added ones increment, survivors are untouched. The final set is renumbered
// densely 1..N. Calling again with the same ids changes nothing.
func (s *service) ReplaceAllReferences(ctx context.Context, req ReplaceAllReferencesRequest) ([]ReferenceEntry, error) {
	wrap := func(err error) error {
		return &ReferenceError{OwnerType: req.OwnerType, OwnerID: req.OwnerID, Op: "replace_all", Err: err}
	}

	desired := dedupe(req.AssetIDs)

	if len(desired) > 0 {
		assets, err := s.repository.GetAssetsByIDs(ctx, desired)
		if err != nil {
			return nil, wrap(err)
		}
		for _, id := range desired {
			if _, ok := assets[id]; !ok {
				return nil, wrap(fmt.Errorf("%w: %s", ErrAssetNotFound, id))
			}
		}
	}

	current, err := s.repository.ListReferences(ctx, req.OwnerType, req.OwnerID, req.Purpose)
	if err != nil {
		return nil, wrap(err)
	}

	desiredSet := make(map[uuid.UUID]bool, len(desired))
	for _, id := range desired {
		desiredSet[id] = true
	}
	currentSet := make(map[uuid.UUID]bool, len(current))
	for _, ref := range current {
		currentSet[ref.AssetID] = true
	}

	// Remove references whose asset dropped out of the desired set.
	for _, ref := range current {
		if desiredSet[ref.AssetID] {
			continue
		}
		if err := s.repository.DeleteReference(ctx, ref.ID); err != nil {
			return nil, wrap(err)
		}
		if err := s.repository.DecRefCount(ctx, ref.AssetID); err != nil {
			return nil, wrap(err)
		}
	}

	// Append new references after the scope's current max; the renumbering
	// pass below fixes their position.
	max, err := s.repository.MaxSortOrder(ctx, req.OwnerType, req.OwnerID, req.Purpose)
	if err != nil {
		return nil, wrap(err)
	}
	for _, id := range desired {
		if currentSet[id] {
			continue
		}
		max += sortOrderGap
		ref := &AssetReference{
			ID:        uuid.New(),
			AssetID:   id,
			OwnerType: req.OwnerType,
			OwnerID:   req.OwnerID,
			Purpose:   req.Purpose,
			SortOrder: max,
			CreatedAt: s.now().UTC(),
		}
		if err := s.repository.CreateReference(ctx, ref); err != nil {
			return nil, wrap(err)
		}
		if err := s.repository.IncRefCount(ctx, id); err != nil {
			return nil, wrap(err)
		}
	}

	// Reload and renumber densely in the desired order.
	final, err := s.repository.ListReferences(ctx, req.OwnerType, req.OwnerID, req.Purpose)
	if err != nil {
		return nil, wrap(err)
	}
	byAsset := make(map[uuid.UUID]*AssetReference, len(final))
	for _, ref := range final {
		byAsset[ref.AssetID] = ref
	}

	entries := make([]ReferenceEntry, 0, len(desired))
	order := 1
	for _, id := range desired {
		ref, ok := byAsset[id]
		if !ok {
			return nil, wrap(fmt.Errorf("%w: %s after reconcile", ErrReferenceNotFound, id))
		}
		if ref.SortOrder != order {
			if err := s.repository.UpdateReferenceSortOrder(ctx, ref.ID, order); err != nil {
				return nil, wrap(err)
			}
		}
		entries = append(entries, ReferenceEntry{ReferenceID: ref.ID, AssetID: id, SortOrder: order})
		order++
	}
	return entries, nil
}

func (s *service) DetachAllReferences(ctx context.Context, req DetachAllReferencesRequest) (int, error) {
	var (
		refs []*AssetReference
		err  error
	)
	if req.Purpose == "" {
		refs, err = s.repository.ListReferencesByOwner(ctx, req.OwnerType, req.OwnerID)
	} else {
		refs, err = s.repository.ListReferences(ctx, req.OwnerType, req.OwnerID, req.Purpose)
	}
	if err != nil {
		return 0, &ReferenceError{OwnerType: req.OwnerType, OwnerID: req.OwnerID, Op: "detach_all", Err: err}
	}

	detached := 0
	for _, ref := range refs {
		if err := s.repository.DeleteReference(ctx, ref.ID); err != nil {
			return detached, &ReferenceError{OwnerType: req.OwnerType, OwnerID: req.OwnerID, Op: "detach_all", Err: err}
		}
		if err := s.repository.DecRefCount(ctx, ref.AssetID); err != nil {
			return detached, &ReferenceError{OwnerType: req.OwnerType, OwnerID: req.OwnerID, Op: "detach_all", Err: err}
		}
		detached++
	}
	return detached, nil
}

func (s *service) ListReferences(ctx context.Context, ownerType OwnerType, ownerID string, purpose Purpose) ([]*AssetReference, error) {
	return s.repository.ListReferences(ctx, ownerType, ownerID, purpose)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
