package simpleasset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-asset/pkg/simpleasset/assetpath"
	"github.com/tendant/simple-asset/pkg/simpleasset/urlstrategy"
)

// How long a pending row may sit before housekeeping treats it as a crash
// orphan and promotes it to active.
const defaultPendingTTL = time.Hour

// service implements the Service interface
type service struct {
	repository   Repository
	blobStores   map[string]BlobStore
	defaultStore string
	presets      PresetResolver
	transformers []Transformer
	urls         urlstrategy.URLStrategy
	dispatcher   *dispatcher
	logger       *slog.Logger
	pendingTTL   time.Duration
	workerCount  int
	queueSize    int
	now          func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend. The first backend added becomes
// the default unless WithDefaultStorageBackend overrides it.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultStore == "" {
			s.defaultStore = name
		}
	}
}

// WithDefaultStorageBackend selects the backend used when a request names none
func WithDefaultStorageBackend(name string) Option {
	return func(s *service) {
		s.defaultStore = name
	}
}

// WithPresetResolver sets the derivative preset resolver
func WithPresetResolver(resolver PresetResolver) Option {
	return func(s *service) {
		s.presets = resolver
	}
}

// WithTransformer registers a derivative transformer
func WithTransformer(t Transformer) Option {
	return func(s *service) {
		s.transformers = append(s.transformers, t)
	}
}

// WithURLStrategy sets the strategy used to resolve public URLs
func WithURLStrategy(strategy urlstrategy.URLStrategy) Option {
	return func(s *service) {
		s.urls = strategy
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithWorkerCount sets the derivative worker pool size
func WithWorkerCount(n int) Option {
	return func(s *service) {
		s.workerCount = n
	}
}

// WithQueueCapacity sets the derivative job queue capacity
func WithQueueCapacity(n int) Option {
	return func(s *service) {
		s.queueSize = n
	}
}

// WithPendingTTL sets how long pending rows survive before housekeeping
// promotes them to active
func WithPendingTTL(ttl time.Duration) Option {
	return func(s *service) {
		s.pendingTTL = ttl
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
		pendingTTL: defaultPendingTTL,
		now:        time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.dispatcher = newDispatcher(s.workerCount, s.queueSize, s.runJob, s.logger)

	return s, nil
}

func (s *service) backend(name string) (BlobStore, error) {
	if name == "" {
		name = s.defaultStore
	}
	store, ok := s.blobStores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStorageBackendNotFound, name)
	}
	return store, nil
}

// Asset registry operations

func (s *service) StoreAsset(ctx context.Context, req StoreAssetRequest) (*StoredAsset, error) {
	backendName := req.StorageBackendName
	if backendName == "" {
		backendName = s.defaultStore
	}
	store, err := s.backend(backendName)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	now := s.now().UTC()
	path := assetpath.New(id, now)
	key := path.OriginalKey()

	// Blob first. If the upload fails no metadata row exists; if the process
	// dies after the upload the pending row left behind (or no row at all)
	// is reclaimed by housekeeping.
	err = store.UploadWithParams(ctx, req.Reader, UploadParams{
		ObjectKey: key,
		MimeType:  req.ContentType,
	})
	if err != nil {
		return nil, &StorageError{
			Backend: backendName,
			Key:     key,
			Op:      "upload",
			Err:     fmt.Errorf("%w: %v", ErrUploadFailed, err),
		}
	}

	asset := &StoredAsset{
		ID:                 id,
		Status:             AssetStatusPending,
		StoragePath:        path.Prefix(),
		StorageKey:         key,
		StorageBackendName: backendName,
		FileName:           req.FileName,
		ByteSize:           req.ByteSize,
		ContentType:        req.ContentType,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repository.CreateAsset(ctx, asset); err != nil {
		return nil, &AssetError{AssetID: id, Op: "create", Err: err}
	}

	asset.Status = AssetStatusActive
	asset.UpdatedAt = s.now().UTC()
	if err := s.repository.UpdateAsset(ctx, asset); err != nil {
		return nil, &AssetError{AssetID: id, Op: "activate", Err: err}
	}

	s.logger.Info("stored asset",
		"asset_id", id,
		"backend", backendName,
		"content_type", req.ContentType,
		"bytes", req.ByteSize)

	return asset, nil
}

func (s *service) GetAsset(ctx context.Context, id uuid.UUID) (*StoredAsset, error) {
	return s.repository.GetAsset(ctx, id)
}

// Upload entry point

func (s *service) UploadImage(ctx context.Context, req UploadImageRequest) (*UploadImageResponse, error) {
	kind := req.Kind
	if kind == "" {
		kind = classifyMedia(req.ContentType)
	}

	asset, err := s.StoreAsset(ctx, StoreAssetRequest{
		Reader:      req.Reader,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		ByteSize:    req.ByteSize,
	})
	if err != nil {
		return nil, err
	}

	if kind == MediaImage {
		job := DerivativeJob{AssetID: asset.ID, Preset: req.Preset}
		AfterCommit(ctx, func(ctx context.Context) {
			s.EnqueueDerivativeJob(ctx, job)
		})
	}

	url, err := s.resolveURL(ctx, asset)
	if err != nil {
		// The upload itself succeeded; a URL resolution failure is not
		// worth failing the request over.
		s.logger.Warn("resolve public url failed", "asset_id", asset.ID, "error", err)
	}

	return &UploadImageResponse{AssetID: asset.ID, URL: url}, nil
}

func (s *service) resolveURL(ctx context.Context, asset *StoredAsset) (string, error) {
	if s.urls != nil {
		return s.urls.GenerateDownloadURL(ctx, asset.ID, asset.StorageKey, asset.StorageBackendName)
	}
	store, err := s.backend(asset.StorageBackendName)
	if err != nil {
		return "", err
	}
	return store.GetDownloadURL(ctx, asset.StorageKey, asset.FileName)
}

func classifyMedia(contentType string) MediaKind {
	switch {
	case MediaImage.Matches(contentType):
		return MediaImage
	case MediaVideo.Matches(contentType):
		return MediaVideo
	default:
		return MediaAttachment
	}
}

// Derivative operations

func (s *service) EnqueueDerivativeJob(ctx context.Context, job DerivativeJob) {
	s.dispatcher.Enqueue(ctx, job)
}

func (s *service) ListDerivatives(ctx context.Context, assetID uuid.UUID) ([]*Derivative, error) {
	return s.repository.ListDerivativesByAsset(ctx, assetID)
}

// runJob is the dispatcher's execution callback; job failures are logged and
// dropped, never retried.
func (s *service) runJob(ctx context.Context, job DerivativeJob) {
	if err := s.ProcessDerivativeJob(ctx, job); err != nil {
		s.logger.Error("derivative job failed", "asset_id", job.AssetID, "error", err)
	}
}

func (s *service) Close() error {
	s.dispatcher.Close()
	return nil
}
