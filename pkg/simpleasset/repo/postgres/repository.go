package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simpleasset.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) simpleasset.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) simpleasset.Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "asset_reference") {
				return fmt.Errorf("reference already exists")
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Asset operations

func (r *Repository) CreateAsset(ctx context.Context, asset *simpleasset.StoredAsset) error {
	query := `
		INSERT INTO stored_asset (
			id, status, storage_path, storage_key, storage_backend_name,
			file_name, byte_size, content_type, ref_count,
			deletable_at, deleted_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		asset.ID, asset.Status, asset.StoragePath, asset.StorageKey,
		asset.StorageBackendName, asset.FileName, asset.ByteSize,
		asset.ContentType, asset.RefCount,
		asset.DeletableAt, asset.DeletedAt, asset.CreatedAt, asset.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create asset", err)
	}

	return nil
}

const assetColumns = `
	id, status, storage_path, storage_key, storage_backend_name,
	file_name, byte_size, content_type, ref_count,
	deletable_at, deleted_at, created_at, updated_at`

func scanAsset(row pgx.Row) (*simpleasset.StoredAsset, error) {
	var asset simpleasset.StoredAsset
	err := row.Scan(
		&asset.ID, &asset.Status, &asset.StoragePath, &asset.StorageKey,
		&asset.StorageBackendName, &asset.FileName, &asset.ByteSize,
		&asset.ContentType, &asset.RefCount,
		&asset.DeletableAt, &asset.DeletedAt, &asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*simpleasset.StoredAsset, error) {
	query := `SELECT` + assetColumns + ` FROM stored_asset WHERE id = $1`

	asset, err := scanAsset(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleasset.ErrAssetNotFound
		}
		return nil, r.handlePostgresError("get asset", err)
	}
	return asset, nil
}

func (r *Repository) GetAssetsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*simpleasset.StoredAsset, error) {
	out := make(map[uuid.UUID]*simpleasset.StoredAsset, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT` + assetColumns + ` FROM stored_asset WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, r.handlePostgresError("get assets by ids", err)
	}
	defer rows.Close()

	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, r.handlePostgresError("get assets by ids", err)
		}
		out[asset.ID] = asset
	}
	return out, rows.Err()
}

func (r *Repository) UpdateAsset(ctx context.Context, asset *simpleasset.StoredAsset) error {
	query := `
		UPDATE stored_asset SET
			status = $2, storage_path = $3, storage_key = $4,
			storage_backend_name = $5, file_name = $6, byte_size = $7,
			content_type = $8, deletable_at = $9, deleted_at = $10,
			updated_at = $11
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		asset.ID, asset.Status, asset.StoragePath, asset.StorageKey,
		asset.StorageBackendName, asset.FileName, asset.ByteSize,
		asset.ContentType, asset.DeletableAt, asset.DeletedAt, asset.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update asset", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleasset.ErrAssetNotFound
	}
	return nil
}

// Reference-count operations. Single UPDATE statements so concurrent
// attach/detach never lose increments.

func (r *Repository) IncRefCount(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE stored_asset
		SET ref_count = ref_count + 1, updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return r.handlePostgresError("inc ref count", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleasset.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) DecRefCount(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE stored_asset
		SET ref_count = GREATEST(ref_count - 1, 0), updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return r.handlePostgresError("dec ref count", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleasset.ErrAssetNotFound
	}
	return nil
}

// Housekeeping operations

func (r *Repository) MarkStalePendingActive(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE stored_asset
		SET status = $1, updated_at = now()
		WHERE status = $2 AND created_at < $3`

	tag, err := r.db.Exec(ctx, query,
		simpleasset.AssetStatusActive, simpleasset.AssetStatusPending, cutoff)
	if err != nil {
		return 0, r.handlePostgresError("mark stale pending active", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) MarkDeletableBatch(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE stored_asset
		SET status = $1, deletable_at = $2, updated_at = $2
		WHERE status = $3 AND ref_count = 0 AND deletable_at IS NULL`

	tag, err := r.db.Exec(ctx, query,
		simpleasset.AssetStatusDeletable, now, simpleasset.AssetStatusActive)
	if err != nil {
		return 0, r.handlePostgresError("mark deletable", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) ListPurgeCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*simpleasset.StoredAsset, error) {
	query := `SELECT` + assetColumns + `
		FROM stored_asset
		WHERE status = $1 AND deletable_at < $2
		ORDER BY deletable_at
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, simpleasset.AssetStatusDeletable, cutoff, limit)
	if err != nil {
		return nil, r.handlePostgresError("list purge candidates", err)
	}
	defer rows.Close()

	var out []*simpleasset.StoredAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, r.handlePostgresError("list purge candidates", err)
		}
		out = append(out, asset)
	}
	return out, rows.Err()
}

func (r *Repository) MarkDeletedBatch(ctx context.Context, ids []uuid.UUID, now time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE stored_asset
		SET status = $1, deleted_at = $2, updated_at = $2
		WHERE id = ANY($3) AND status = $4`

	tag, err := r.db.Exec(ctx, query,
		simpleasset.AssetStatusDeleted, now, ids, simpleasset.AssetStatusDeletable)
	if err != nil {
		return 0, r.handlePostgresError("mark deleted", err)
	}
	return int(tag.RowsAffected()), nil
}

// Reference operations

func (r *Repository) CreateReference(ctx context.Context, ref *simpleasset.AssetReference) error {
	query := `
		INSERT INTO asset_reference (
			id, asset_id, owner_type, owner_id, purpose,
			sort_order, display_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		ref.ID, ref.AssetID, ref.OwnerType, ref.OwnerID, ref.Purpose,
		ref.SortOrder, ref.DisplayName, ref.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create reference", err)
	}
	return nil
}

func (r *Repository) ReferenceExists(ctx context.Context, assetID uuid.UUID, ownerType simpleasset.OwnerType, ownerID string, purpose simpleasset.Purpose) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM asset_reference
			WHERE asset_id = $1 AND owner_type = $2 AND owner_id = $3 AND purpose = $4
		)`

	var exists bool
	err := r.db.QueryRow(ctx, query, assetID, ownerType, ownerID, purpose).Scan(&exists)
	if err != nil {
		return false, r.handlePostgresError("reference exists", err)
	}
	return exists, nil
}

const referenceColumns = `
	id, asset_id, owner_type, owner_id, purpose, sort_order, display_name, created_at`

func scanReference(row pgx.Row) (*simpleasset.AssetReference, error) {
	var ref simpleasset.AssetReference
	err := row.Scan(
		&ref.ID, &ref.AssetID, &ref.OwnerType, &ref.OwnerID, &ref.Purpose,
		&ref.SortOrder, &ref.DisplayName, &ref.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *Repository) FindReferenceByOwnerAndAsset(ctx context.Context, ownerID string, assetID uuid.UUID) (*simpleasset.AssetReference, error) {
	query := `SELECT` + referenceColumns + `
		FROM asset_reference
		WHERE owner_id = $1 AND asset_id = $2
		LIMIT 1`

	ref, err := scanReference(r.db.QueryRow(ctx, query, ownerID, assetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleasset.ErrReferenceNotFound
		}
		return nil, r.handlePostgresError("find reference", err)
	}
	return ref, nil
}

func (r *Repository) listReferences(ctx context.Context, operation, query string, args ...interface{}) ([]*simpleasset.AssetReference, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	defer rows.Close()

	var out []*simpleasset.AssetReference
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, r.handlePostgresError(operation, err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *Repository) ListReferences(ctx context.Context, ownerType simpleasset.OwnerType, ownerID string, purpose simpleasset.Purpose) ([]*simpleasset.AssetReference, error) {
	query := `SELECT` + referenceColumns + `
		FROM asset_reference
		WHERE owner_type = $1 AND owner_id = $2 AND purpose = $3
		ORDER BY sort_order, created_at`

	return r.listReferences(ctx, "list references", query, ownerType, ownerID, purpose)
}

func (r *Repository) ListReferencesByOwner(ctx context.Context, ownerType simpleasset.OwnerType, ownerID string) ([]*simpleasset.AssetReference, error) {
	query := `SELECT` + referenceColumns + `
		FROM asset_reference
		WHERE owner_type = $1 AND owner_id = $2
		ORDER BY purpose, sort_order, created_at`

	return r.listReferences(ctx, "list references by owner", query, ownerType, ownerID)
}

func (r *Repository) MaxSortOrder(ctx context.Context, ownerType simpleasset.OwnerType, ownerID string, purpose simpleasset.Purpose) (int, error) {
	query := `
		SELECT COALESCE(MAX(sort_order), 0)
		FROM asset_reference
		WHERE owner_type = $1 AND owner_id = $2 AND purpose = $3`

	var max int
	err := r.db.QueryRow(ctx, query, ownerType, ownerID, purpose).Scan(&max)
	if err != nil {
		return 0, r.handlePostgresError("max sort order", err)
	}
	return max, nil
}

func (r *Repository) UpdateReferenceSortOrder(ctx context.Context, refID uuid.UUID, sortOrder int) error {
	query := `UPDATE asset_reference SET sort_order = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, refID, sortOrder)
	if err != nil {
		return r.handlePostgresError("update reference sort order", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleasset.ErrReferenceNotFound
	}
	return nil
}

func (r *Repository) DeleteReference(ctx context.Context, refID uuid.UUID) error {
	query := `DELETE FROM asset_reference WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, refID)
	if err != nil {
		return r.handlePostgresError("delete reference", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleasset.ErrReferenceNotFound
	}
	return nil
}

// Derivative operations

func (r *Repository) CreateDerivativeIfAbsent(ctx context.Context, d *simpleasset.Derivative) (bool, error) {
	// A racing insert for the same (asset, kind) is absorbed by the
	// conflict clause rather than surfacing as an error.
	query := `
		INSERT INTO asset_derivative (
			id, asset_id, kind, status, storage_key, content_type,
			width, height, byte_size, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (asset_id, kind) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		d.ID, d.AssetID, d.Kind, d.Status, d.StorageKey, d.ContentType,
		d.Width, d.Height, d.ByteSize, d.CreatedAt)
	if err != nil {
		return false, r.handlePostgresError("create derivative", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) ListDerivativesByAsset(ctx context.Context, assetID uuid.UUID) ([]*simpleasset.Derivative, error) {
	query := `
		SELECT id, asset_id, kind, status, storage_key, content_type,
		       width, height, byte_size, created_at
		FROM asset_derivative
		WHERE asset_id = $1
		ORDER BY kind`

	rows, err := r.db.Query(ctx, query, assetID)
	if err != nil {
		return nil, r.handlePostgresError("list derivatives", err)
	}
	defer rows.Close()

	var out []*simpleasset.Derivative
	for rows.Next() {
		var d simpleasset.Derivative
		err := rows.Scan(
			&d.ID, &d.AssetID, &d.Kind, &d.Status, &d.StorageKey,
			&d.ContentType, &d.Width, &d.Height, &d.ByteSize, &d.CreatedAt)
		if err != nil {
			return nil, r.handlePostgresError("list derivatives", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
