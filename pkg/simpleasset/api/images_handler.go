package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// Uploads larger than this are rejected before reading the body.
const maxUploadBytes = 50 << 20 // 50MB

// ImagesHandler exposes the image upload and asset info API endpoints
type ImagesHandler struct {
	service simpleasset.Service
}

func NewImagesHandler(service simpleasset.Service) *ImagesHandler {
	return &ImagesHandler{service: service}
}

// Routes returns the router for image endpoints
func (h *ImagesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.UploadImage)
	r.Get("/{asset_id}", h.GetAssetInfo)
	r.Post("/references", h.ReplaceReferences)
	return r
}

// UploadImageResponse represents the response after an upload
type UploadImageResponse struct {
	AssetID string `json:"asset_id"`
	URL     string `json:"url"`
}

// AssetInfoResponse represents asset information including derivatives
type AssetInfoResponse struct {
	AssetID     string         `json:"asset_id"`
	Status      string         `json:"status"`
	FileName    string         `json:"file_name,omitempty"`
	ContentType string         `json:"content_type,omitempty"`
	ByteSize    int64          `json:"byte_size"`
	RefCount    int            `json:"ref_count"`
	CreatedAt   time.Time      `json:"created_at"`
	Derivatives []AssetVariant `json:"derivatives"`
}

// AssetVariant is one derivative in an AssetInfoResponse
type AssetVariant struct {
	Kind        string `json:"kind"`
	StorageKey  string `json:"storage_key"`
	ContentType string `json:"content_type"`
	Width       *int   `json:"width,omitempty"`
	Height      *int   `json:"height,omitempty"`
	ByteSize    int64  `json:"byte_size"`
}

// ReplaceReferencesRequest reconciles an owner scope to the given asset ids
type ReplaceReferencesRequest struct {
	OwnerType string   `json:"owner_type"`
	OwnerID   string   `json:"owner_id"`
	Purpose   string   `json:"purpose"`
	AssetIDs  []string `json:"asset_ids"`
}

// UploadImage accepts a multipart upload, stores the original, and schedules
// derivative generation
func (h *ImagesHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Failed to read upload file", "error", err)
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := h.service.UploadImage(r.Context(), simpleasset.UploadImageRequest{
		Reader:      file,
		FileName:    header.Filename,
		ContentType: contentType,
		ByteSize:    header.Size,
		Preset:      r.FormValue("preset"),
	})
	if err != nil {
		slog.Error("Upload failed", "file_name", header.Filename, "error", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadImageResponse{
		AssetID: resp.AssetID.String(),
		URL:     resp.URL,
	})
}

// GetAssetInfo returns asset metadata and its derivatives
func (h *ImagesHandler) GetAssetInfo(w http.ResponseWriter, r *http.Request) {
	assetID, err := uuid.Parse(chi.URLParam(r, "asset_id"))
	if err != nil {
		http.Error(w, "Invalid asset ID", http.StatusBadRequest)
		return
	}

	asset, err := h.service.GetAsset(r.Context(), assetID)
	if err != nil {
		if errors.Is(err, simpleasset.ErrAssetNotFound) {
			http.Error(w, "Asset not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get asset", "asset_id", assetID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	derivatives, err := h.service.ListDerivatives(r.Context(), assetID)
	if err != nil {
		slog.Error("Failed to list derivatives", "asset_id", assetID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := AssetInfoResponse{
		AssetID:     asset.ID.String(),
		Status:      string(asset.Status),
		FileName:    asset.FileName,
		ContentType: asset.ContentType,
		ByteSize:    asset.ByteSize,
		RefCount:    asset.RefCount,
		CreatedAt:   asset.CreatedAt,
		Derivatives: make([]AssetVariant, 0, len(derivatives)),
	}
	for _, d := range derivatives {
		resp.Derivatives = append(resp.Derivatives, AssetVariant{
			Kind:        string(d.Kind),
			StorageKey:  d.StorageKey,
			ContentType: d.ContentType,
			Width:       d.Width,
			Height:      d.Height,
			ByteSize:    d.ByteSize,
		})
	}

	render.JSON(w, r, resp)
}

// ReplaceReferences reconciles an owner scope's references
func (h *ImagesHandler) ReplaceReferences(w http.ResponseWriter, r *http.Request) {
	var req ReplaceReferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.OwnerType == "" || req.OwnerID == "" || req.Purpose == "" {
		http.Error(w, "owner_type, owner_id and purpose are required", http.StatusBadRequest)
		return
	}

	assetIDs := make([]uuid.UUID, 0, len(req.AssetIDs))
	for _, raw := range req.AssetIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "Invalid asset ID: "+raw, http.StatusBadRequest)
			return
		}
		assetIDs = append(assetIDs, id)
	}

	entries, err := h.service.ReplaceAllReferences(r.Context(), simpleasset.ReplaceAllReferencesRequest{
		OwnerType: simpleasset.OwnerType(req.OwnerType),
		OwnerID:   req.OwnerID,
		Purpose:   simpleasset.Purpose(req.Purpose),
		AssetIDs:  assetIDs,
	})
	if err != nil {
		if errors.Is(err, simpleasset.ErrAssetNotFound) {
			http.Error(w, "Unknown asset in request", http.StatusUnprocessableEntity)
			return
		}
		slog.Error("Replace references failed",
			"owner_type", req.OwnerType,
			"owner_id", req.OwnerID,
			"error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, entries)
}
