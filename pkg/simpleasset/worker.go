package simpleasset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-asset/pkg/simpleasset/assetpath"
)

// ProcessDerivativeJob generates the job's renditions synchronously. The
// original is downloaded once; each target is transformed, uploaded and
// registered independently, so one failing target never blocks the rest.
// Only resolution and download errors are returned; per-target failures are
// logged and swallowed.
func (s *service) ProcessDerivativeJob(ctx context.Context, job DerivativeJob) error {
	asset, err := s.repository.GetAsset(ctx, job.AssetID)
	if err != nil {
		return &AssetError{AssetID: job.AssetID, Op: "derivative_resolve", Err: err}
	}

	targets := job.Targets
	if len(targets) == 0 && s.presets != nil {
		targets = s.presets.Resolve(job.Preset, asset.ContentType)
	}
	if len(targets) == 0 {
		s.logger.Info("no derivative targets for asset", "asset_id", asset.ID, "preset", job.Preset)
		return nil
	}

	transformer := s.transformerFor(asset.ContentType)
	if transformer == nil {
		s.logger.Info("no transformer supports content type",
			"asset_id", asset.ID,
			"content_type", asset.ContentType)
		return nil
	}

	store, err := s.backend(asset.StorageBackendName)
	if err != nil {
		return err
	}

	original, err := s.downloadOriginal(ctx, store, asset)
	if err != nil {
		return &StorageError{
			Backend: asset.StorageBackendName,
			Key:     asset.StorageKey,
			Op:      "download",
			Err:     err,
		}
	}

	path := assetpath.FromPrefix(asset.StoragePath)
	for _, target := range targets {
		if err := s.produceDerivative(ctx, transformer, store, asset, path, original, target); err != nil {
			s.logger.Error("derivative target failed",
				"asset_id", asset.ID,
				"kind", target.Kind,
				"error", err)
		}
	}
	return nil
}

func (s *service) transformerFor(contentType string) Transformer {
	for _, t := range s.transformers {
		if t.Supports(contentType) {
			return t
		}
	}
	return nil
}

func (s *service) downloadOriginal(ctx context.Context, store BlobStore, asset *StoredAsset) ([]byte, error) {
	rc, err := store.Download(ctx, asset.StorageKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *service) produceDerivative(ctx context.Context, transformer Transformer, store BlobStore, asset *StoredAsset, path assetpath.Path, original []byte, target DerivativeTarget) error {
	result, err := transformer.Transform(ctx, original, target)
	if err != nil {
		return fmt.Errorf("transform %s: %w", target.Kind, err)
	}

	key := path.VariantKey(string(target.Kind), extensionFor(result.ContentType))
	err = store.UploadWithParams(ctx, bytes.NewReader(result.Bytes), UploadParams{
		ObjectKey: key,
		MimeType:  result.ContentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	d := &Derivative{
		ID:          uuid.New(),
		AssetID:     asset.ID,
		Kind:        target.Kind,
		Status:      AssetStatusActive,
		StorageKey:  key,
		ContentType: result.ContentType,
		ByteSize:    int64(len(result.Bytes)),
		CreatedAt:   time.Now().UTC(),
	}
	if result.Width > 0 {
		w := result.Width
		d.Width = &w
	}
	if result.Height > 0 {
		h := result.Height
		d.Height = &h
	}

	created, err := s.repository.CreateDerivativeIfAbsent(ctx, d)
	if err != nil {
		return fmt.Errorf("register %s: %w", target.Kind, err)
	}
	if !created {
		s.logger.Debug("derivative already registered", "asset_id", asset.ID, "kind", target.Kind)
	}
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/avif":
		return "avif"
	case "image/gif":
		return "gif"
	default:
		return "bin"
	}
}
