package simpleasset_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

func TestProcessDerivativeJob(t *testing.T) {
	tr := &stubTransformer{}
	svc, _, store := newTestService(t, simpleasset.WithTransformer(tr))
	ctx := context.Background()

	asset := storeTestAsset(t, svc)

	err := svc.ProcessDerivativeJob(ctx, simpleasset.DerivativeJob{
		AssetID: asset.ID,
		Targets: []simpleasset.DerivativeTarget{
			simpleasset.TargetThumb256(),
			simpleasset.TargetThumb512(),
		},
	})
	require.NoError(t, err)

	derivatives, err := svc.ListDerivatives(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, derivatives, 2)

	for _, d := range derivatives {
		assert.Equal(t, asset.ID, d.AssetID)
		assert.NotEmpty(t, d.StorageKey)
		rc, err := store.Download(ctx, d.StorageKey)
		require.NoError(t, err, "derivative bytes uploaded for %s", d.Kind)
		rc.Close()
	}
}

func TestProcessDerivativeJobTargetIsolation(t *testing.T) {
	tr := &stubTransformer{failKinds: map[simpleasset.DerivativeKind]bool{
		simpleasset.KindWebP: true,
	}}
	svc, _, _ := newTestService(t, simpleasset.WithTransformer(tr))
	ctx := context.Background()

	asset := storeTestAsset(t, svc)

	// The failing webp target must not stop thumb generation
	err := svc.ProcessDerivativeJob(ctx, simpleasset.DerivativeJob{
		AssetID: asset.ID,
		Targets: []simpleasset.DerivativeTarget{
			simpleasset.TargetWebP(),
			simpleasset.TargetThumb256(),
		},
	})
	require.NoError(t, err)

	derivatives, err := svc.ListDerivatives(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, derivatives, 1)
	assert.Equal(t, simpleasset.KindThumb256, derivatives[0].Kind)
}

func TestProcessDerivativeJobIdempotent(t *testing.T) {
	tr := &stubTransformer{}
	svc, _, _ := newTestService(t, simpleasset.WithTransformer(tr))
	ctx := context.Background()

	asset := storeTestAsset(t, svc)
	job := simpleasset.DerivativeJob{
		AssetID: asset.ID,
		Targets: []simpleasset.DerivativeTarget{simpleasset.TargetThumb256()},
	}

	require.NoError(t, svc.ProcessDerivativeJob(ctx, job))
	require.NoError(t, svc.ProcessDerivativeJob(ctx, job))

	derivatives, err := svc.ListDerivatives(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, derivatives, 1, "rerunning the job keeps one derivative per kind")
}

func TestProcessDerivativeJobNoTransformer(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	asset := storeTestAsset(t, svc)

	// No transformer supports the content type; the job is a logged no-op
	err := svc.ProcessDerivativeJob(ctx, simpleasset.DerivativeJob{
		AssetID: asset.ID,
		Targets: []simpleasset.DerivativeTarget{simpleasset.TargetThumb256()},
	})
	require.NoError(t, err)

	derivatives, err := svc.ListDerivatives(ctx, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, derivatives)
}

func TestProcessDerivativeJobNoTargets(t *testing.T) {
	tr := &stubTransformer{}
	svc, _, _ := newTestService(t,
		simpleasset.WithTransformer(tr),
		simpleasset.WithPresetResolver(&stubPresets{}),
	)
	ctx := context.Background()

	asset := storeTestAsset(t, svc)

	err := svc.ProcessDerivativeJob(ctx, simpleasset.DerivativeJob{AssetID: asset.ID, Preset: "unknown"})
	require.NoError(t, err)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Empty(t, tr.calls)
}

func TestProcessDerivativeJobUnknownAsset(t *testing.T) {
	tr := &stubTransformer{}
	svc, _, _ := newTestService(t, simpleasset.WithTransformer(tr))

	err := svc.ProcessDerivativeJob(context.Background(), simpleasset.DerivativeJob{
		AssetID: uuid.New(),
		Targets: []simpleasset.DerivativeTarget{simpleasset.TargetThumb256()},
	})
	assert.ErrorIs(t, err, simpleasset.ErrAssetNotFound)
}
