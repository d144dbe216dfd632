package simpleasset_test

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	memoryrepo "github.com/tendant/simple-asset/pkg/simpleasset/repo/memory"
	memorystorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/memory"
)

// stubTransformer produces tiny fixed renditions without decoding anything.
// Kinds listed in failKinds return an error instead.
type stubTransformer struct {
	mu        sync.Mutex
	failKinds map[simpleasset.DerivativeKind]bool
	calls     []simpleasset.DerivativeKind
}

func (s *stubTransformer) Supports(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

func (s *stubTransformer) Transform(ctx context.Context, original []byte, target simpleasset.DerivativeTarget) (*simpleasset.TransformResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, target.Kind)
	s.mu.Unlock()

	if s.failKinds[target.Kind] {
		return nil, fmt.Errorf("stub failure for %s", target.Kind)
	}
	return &simpleasset.TransformResult{
		Bytes:       []byte("rendition:" + string(target.Kind)),
		ContentType: "image/jpeg",
		Width:       target.Width,
		Height:      target.Width,
	}, nil
}

// stubPresets resolves every preset to the given fixed target list.
type stubPresets struct {
	targets []simpleasset.DerivativeTarget
}

func (s *stubPresets) Resolve(preset string, contentType string) []simpleasset.DerivativeTarget {
	return s.targets
}

func newTestService(t *testing.T, options ...simpleasset.Option) (simpleasset.Service, simpleasset.Repository, simpleasset.BlobStore) {
	t.Helper()

	repo := memoryrepo.New()
	store := memorystorage.New()

	opts := append([]simpleasset.Option{
		simpleasset.WithRepository(repo),
		simpleasset.WithBlobStore("memory", store),
		simpleasset.WithLogger(slog.Default()),
	}, options...)

	svc, err := simpleasset.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	return svc, repo, store
}

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []simpleasset.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []simpleasset.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []simpleasset.Option{
				simpleasset.WithRepository(memoryrepo.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := simpleasset.New(tt.options...)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, svc)
				svc.Close()
			}
		})
	}
}

func TestStoreAsset(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()

	asset, err := svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{
		Reader:      strings.NewReader("original bytes"),
		FileName:    "photo.jpg",
		ContentType: "image/jpeg",
		ByteSize:    14,
	})
	require.NoError(t, err)

	assert.Equal(t, simpleasset.AssetStatusActive, asset.Status)
	assert.Equal(t, 0, asset.RefCount)
	assert.Equal(t, "memory", asset.StorageBackendName)
	assert.True(t, strings.HasSuffix(asset.StorageKey, "/original"))
	assert.True(t, strings.HasPrefix(asset.StorageKey, asset.StoragePath))

	// Blob must exist under the asset's key
	rc, err := store.Download(ctx, asset.StorageKey)
	require.NoError(t, err)
	rc.Close()

	// Round-trip through the registry
	got, err := svc.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, got.ID)
	assert.Equal(t, simpleasset.AssetStatusActive, got.Status)
}

func TestStoreAssetUnknownBackend(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.StoreAsset(context.Background(), simpleasset.StoreAssetRequest{
		Reader:             strings.NewReader("x"),
		StorageBackendName: "does-not-exist",
	})
	assert.ErrorIs(t, err, simpleasset.ErrStorageBackendNotFound)
}

func TestGetAssetNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetAsset(context.Background(), uuid.New())
	assert.ErrorIs(t, err, simpleasset.ErrAssetNotFound)
}

func TestUploadImageGeneratesDerivatives(t *testing.T) {
	tr := &stubTransformer{}
	svc, _, store := newTestService(t,
		simpleasset.WithTransformer(tr),
		simpleasset.WithPresetResolver(&stubPresets{targets: []simpleasset.DerivativeTarget{
			simpleasset.TargetThumb256(),
			simpleasset.TargetWebP(),
		}}),
	)
	ctx := context.Background()

	resp, err := svc.UploadImage(ctx, simpleasset.UploadImageRequest{
		Reader:      strings.NewReader("fake image bytes"),
		FileName:    "cat.png",
		ContentType: "image/png",
		ByteSize:    16,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, resp.AssetID)

	// No commit hook registry on the context, so the job was dispatched
	// immediately; Close drains the worker pool.
	require.NoError(t, svc.Close())

	derivatives, err := svc.ListDerivatives(ctx, resp.AssetID)
	require.NoError(t, err)
	require.Len(t, derivatives, 2)

	asset, err := svc.GetAsset(ctx, resp.AssetID)
	require.NoError(t, err)
	for _, d := range derivatives {
		assert.True(t, strings.HasPrefix(d.StorageKey, asset.StoragePath+"variants/"),
			"derivative key %q must live under the variants prefix", d.StorageKey)
		rc, err := store.Download(ctx, d.StorageKey)
		require.NoError(t, err)
		rc.Close()
	}
}

func TestUploadImageDeferredDispatch(t *testing.T) {
	tr := &stubTransformer{}
	svc, _, _ := newTestService(t,
		simpleasset.WithTransformer(tr),
		simpleasset.WithPresetResolver(&stubPresets{targets: []simpleasset.DerivativeTarget{
			simpleasset.TargetWebP(),
		}}),
	)

	// With an active hook registry the job waits for the commit signal.
	ctx := simpleasset.WithCommitHooks(context.Background())

	resp, err := svc.UploadImage(ctx, simpleasset.UploadImageRequest{
		Reader:      strings.NewReader("img"),
		FileName:    "a.png",
		ContentType: "image/png",
		ByteSize:    3,
	})
	require.NoError(t, err)

	tr.mu.Lock()
	calls := len(tr.calls)
	tr.mu.Unlock()
	assert.Equal(t, 0, calls, "no transform may run before commit")

	simpleasset.RunCommitHooks(ctx)
	require.NoError(t, svc.Close())

	derivatives, err := svc.ListDerivatives(context.Background(), resp.AssetID)
	require.NoError(t, err)
	assert.Len(t, derivatives, 1)
}

func TestUploadImageNonImageSkipsDerivatives(t *testing.T) {
	tr := &stubTransformer{}
	svc, _, _ := newTestService(t,
		simpleasset.WithTransformer(tr),
		simpleasset.WithPresetResolver(&stubPresets{targets: []simpleasset.DerivativeTarget{
			simpleasset.TargetWebP(),
		}}),
	)
	ctx := context.Background()

	resp, err := svc.UploadImage(ctx, simpleasset.UploadImageRequest{
		Reader:      strings.NewReader("%PDF-1.4"),
		FileName:    "doc.pdf",
		ContentType: "application/pdf",
		ByteSize:    8,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	derivatives, err := svc.ListDerivatives(ctx, resp.AssetID)
	require.NoError(t, err)
	assert.Empty(t, derivatives)
}
