package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/repo/memory"
)

func createAsset(t *testing.T, repo simpleasset.Repository, status simpleasset.AssetStatus, refCount int) *simpleasset.StoredAsset {
	t.Helper()
	asset := &simpleasset.StoredAsset{
		ID:                 uuid.New(),
		Status:             status,
		StoragePath:        "2026/08/29/x/",
		StorageKey:         "2026/08/29/x/original",
		StorageBackendName: "memory",
		RefCount:           refCount,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	require.NoError(t, repo.CreateAsset(context.Background(), asset))
	return asset
}

func TestAssetRoundTrip(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	asset := createAsset(t, repo, simpleasset.AssetStatusPending, 0)

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, got.ID)
	assert.Equal(t, simpleasset.AssetStatusPending, got.Status)

	// Mutating the returned copy must not touch the stored row
	got.Status = simpleasset.AssetStatusDeleted
	again, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, simpleasset.AssetStatusPending, again.Status)

	_, err = repo.GetAsset(ctx, uuid.New())
	assert.ErrorIs(t, err, simpleasset.ErrAssetNotFound)
}

func TestGetAssetsByIDs(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	a := createAsset(t, repo, simpleasset.AssetStatusActive, 0)
	b := createAsset(t, repo, simpleasset.AssetStatusActive, 0)
	missing := uuid.New()

	got, err := repo.GetAssetsByIDs(ctx, []uuid.UUID{a.ID, b.ID, missing})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, a.ID)
	assert.Contains(t, got, b.ID)
	assert.NotContains(t, got, missing)
}

func TestRefCountFloorsAtZero(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	asset := createAsset(t, repo, simpleasset.AssetStatusActive, 0)

	require.NoError(t, repo.IncRefCount(ctx, asset.ID))
	require.NoError(t, repo.IncRefCount(ctx, asset.ID))
	require.NoError(t, repo.DecRefCount(ctx, asset.ID))
	require.NoError(t, repo.DecRefCount(ctx, asset.ID))
	require.NoError(t, repo.DecRefCount(ctx, asset.ID), "decrement below zero is tolerated")

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RefCount)

	assert.ErrorIs(t, repo.IncRefCount(ctx, uuid.New()), simpleasset.ErrAssetNotFound)
}

func TestMarkStalePendingActive(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	stale := createAsset(t, repo, simpleasset.AssetStatusPending, 0)
	stale.CreatedAt = now.Add(-2 * time.Hour)
	require.NoError(t, repo.UpdateAsset(ctx, stale))

	fresh := createAsset(t, repo, simpleasset.AssetStatusPending, 0)
	active := createAsset(t, repo, simpleasset.AssetStatusActive, 0)

	n, err := repo.MarkStalePendingActive(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for id, want := range map[uuid.UUID]simpleasset.AssetStatus{
		stale.ID:  simpleasset.AssetStatusActive,
		fresh.ID:  simpleasset.AssetStatusPending,
		active.ID: simpleasset.AssetStatusActive,
	} {
		got, err := repo.GetAsset(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}
}

func TestMarkDeletableBatch(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	orphan := createAsset(t, repo, simpleasset.AssetStatusActive, 0)
	referenced := createAsset(t, repo, simpleasset.AssetStatusActive, 2)
	pending := createAsset(t, repo, simpleasset.AssetStatusPending, 0)

	n, err := repo.MarkDeletableBatch(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only active zero-ref assets are marked")

	got, err := repo.GetAsset(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, simpleasset.AssetStatusDeletable, got.Status)
	require.NotNil(t, got.DeletableAt)
	assert.True(t, got.DeletableAt.Equal(now))

	for _, id := range []uuid.UUID{referenced.ID, pending.ID} {
		got, err := repo.GetAsset(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got.DeletableAt)
	}

	// Already-marked rows keep their original stamp
	n, err = repo.MarkDeletableBatch(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestListPurgeCandidates(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	makeDeletable := func(age time.Duration) *simpleasset.StoredAsset {
		asset := createAsset(t, repo, simpleasset.AssetStatusDeletable, 0)
		stamp := now.Add(-age)
		asset.DeletableAt = &stamp
		require.NoError(t, repo.UpdateAsset(ctx, asset))
		return asset
	}

	oldest := makeDeletable(72 * time.Hour)
	older := makeDeletable(48 * time.Hour)
	makeDeletable(time.Hour) // inside the grace window
	createAsset(t, repo, simpleasset.AssetStatusActive, 0)

	got, err := repo.ListPurgeCandidates(ctx, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, oldest.ID, got[0].ID, "oldest stamps first")
	assert.Equal(t, older.ID, got[1].ID)

	limited, err := repo.ListPurgeCandidates(ctx, now.Add(-24*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, oldest.ID, limited[0].ID)
}

func TestMarkDeletedBatch(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	deletable := createAsset(t, repo, simpleasset.AssetStatusDeletable, 0)
	active := createAsset(t, repo, simpleasset.AssetStatusActive, 0)

	n, err := repo.MarkDeletedBatch(ctx, []uuid.UUID{deletable.ID, active.ID, uuid.New()}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only deletable rows transition to deleted")

	got, err := repo.GetAsset(ctx, deletable.ID)
	require.NoError(t, err)
	assert.Equal(t, simpleasset.AssetStatusDeleted, got.Status)
	require.NotNil(t, got.DeletedAt)

	got, err = repo.GetAsset(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, simpleasset.AssetStatusActive, got.Status)
	assert.Nil(t, got.DeletedAt)
}

func TestReferenceQueries(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	asset := createAsset(t, repo, simpleasset.AssetStatusActive, 0)
	other := createAsset(t, repo, simpleasset.AssetStatusActive, 0)

	newRef := func(assetID uuid.UUID, purpose simpleasset.Purpose, sortOrder int) *simpleasset.AssetReference {
		ref := &simpleasset.AssetReference{
			ID:        uuid.New(),
			AssetID:   assetID,
			OwnerType: simpleasset.OwnerTypePost,
			OwnerID:   "post-1",
			Purpose:   purpose,
			SortOrder: sortOrder,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, repo.CreateReference(ctx, ref))
		return ref
	}

	first := newRef(asset.ID, simpleasset.PurposeContent, 20)
	second := newRef(other.ID, simpleasset.PurposeContent, 10)
	head := newRef(asset.ID, simpleasset.PurposeHeadImage, 10)

	exists, err := repo.ReferenceExists(ctx, asset.ID, simpleasset.OwnerTypePost, "post-1", simpleasset.PurposeContent)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ReferenceExists(ctx, asset.ID, simpleasset.OwnerTypeCategory, "post-1", simpleasset.PurposeContent)
	require.NoError(t, err)
	assert.False(t, exists)

	refs, err := repo.ListReferences(ctx, simpleasset.OwnerTypePost, "post-1", simpleasset.PurposeContent)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, second.ID, refs[0].ID, "sorted by sort order")
	assert.Equal(t, first.ID, refs[1].ID)

	all, err := repo.ListReferencesByOwner(ctx, simpleasset.OwnerTypePost, "post-1")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	max, err := repo.MaxSortOrder(ctx, simpleasset.OwnerTypePost, "post-1", simpleasset.PurposeContent)
	require.NoError(t, err)
	assert.Equal(t, 20, max)

	max, err = repo.MaxSortOrder(ctx, simpleasset.OwnerTypePost, "post-2", simpleasset.PurposeContent)
	require.NoError(t, err)
	assert.Equal(t, 0, max, "empty scope has max zero")

	found, err := repo.FindReferenceByOwnerAndAsset(ctx, "post-1", asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, found.AssetID)

	_, err = repo.FindReferenceByOwnerAndAsset(ctx, "post-9", asset.ID)
	assert.ErrorIs(t, err, simpleasset.ErrReferenceNotFound)

	require.NoError(t, repo.UpdateReferenceSortOrder(ctx, head.ID, 99))
	require.NoError(t, repo.DeleteReference(ctx, head.ID))
	assert.ErrorIs(t, repo.DeleteReference(ctx, head.ID), simpleasset.ErrReferenceNotFound)
	assert.ErrorIs(t, repo.UpdateReferenceSortOrder(ctx, head.ID, 1), simpleasset.ErrReferenceNotFound)
}

func TestCreateDerivativeIfAbsent(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	asset := createAsset(t, repo, simpleasset.AssetStatusActive, 0)

	created, err := repo.CreateDerivativeIfAbsent(ctx, &simpleasset.Derivative{
		ID:      uuid.New(),
		AssetID: asset.ID,
		Kind:    simpleasset.KindWebP,
		Status:  simpleasset.AssetStatusActive,
	})
	require.NoError(t, err)
	assert.True(t, created)

	// Same (asset, kind) with a fresh id is a silent no-op
	created, err = repo.CreateDerivativeIfAbsent(ctx, &simpleasset.Derivative{
		ID:      uuid.New(),
		AssetID: asset.ID,
		Kind:    simpleasset.KindWebP,
		Status:  simpleasset.AssetStatusActive,
	})
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repo.CreateDerivativeIfAbsent(ctx, &simpleasset.Derivative{
		ID:      uuid.New(),
		AssetID: asset.ID,
		Kind:    simpleasset.KindThumb256,
		Status:  simpleasset.AssetStatusActive,
	})
	require.NoError(t, err)
	assert.True(t, created)

	derivatives, err := repo.ListDerivativesByAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, derivatives, 2)
}
