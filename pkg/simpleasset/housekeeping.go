package simpleasset

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Rows purged per batch. Keeps each pass's storage round-trips and the final
// bulk update bounded.
const purgeBatchSize = 300

// SweepMarkDeletable is housekeeping phase one: every active asset with a
// zero reference count and no deletable stamp is flipped to deletable in a
// single conditional update, stamped with the sweep time. Stale pending rows
// (crash orphans) are first promoted to active so the same sweep eventually
// reclaims them.
func (s *service) SweepMarkDeletable(ctx context.Context) (int, error) {
	now := s.now().UTC()

	if s.pendingTTL > 0 {
		promoted, err := s.repository.MarkStalePendingActive(ctx, now.Add(-s.pendingTTL))
		if err != nil {
			return 0, fmt.Errorf("promote stale pending: %w", err)
		}
		if promoted > 0 {
			s.logger.Info("promoted stale pending assets", "count", promoted)
		}
	}

	marked, err := s.repository.MarkDeletableBatch(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("mark deletable: %w", err)
	}
	if marked > 0 {
		s.logger.Info("marked assets deletable", "count", marked)
	}
	return marked, nil
}

// PurgeExpiredDeletables is housekeeping phase two: deletable assets whose
// stamp is older than the grace period have their whole storage prefix
// removed (original and derivatives together), then are bulk-flipped to
// deleted. A failed prefix delete leaves the row deletable so the next run
// retries it. Works in batches until a short batch ends the pass.
func (s *service) PurgeExpiredDeletables(ctx context.Context, grace time.Duration) (int, error) {
	total := 0
	for {
		cutoff := s.now().UTC().Add(-grace)
		batch, err := s.repository.ListPurgeCandidates(ctx, cutoff, purgeBatchSize)
		if err != nil {
			return total, fmt.Errorf("list purge candidates: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		purged := make([]uuid.UUID, 0, len(batch))
		for _, asset := range batch {
			store, err := s.backend(asset.StorageBackendName)
			if err != nil {
				s.logger.Error("purge skipped, backend missing",
					"asset_id", asset.ID,
					"backend", asset.StorageBackendName)
				continue
			}
			removed, err := store.DeletePrefix(ctx, asset.StoragePath)
			if err != nil {
				s.logger.Error("purge prefix delete failed, will retry next run",
					"asset_id", asset.ID,
					"prefix", asset.StoragePath,
					"error", err)
				continue
			}
			s.logger.Info("purged asset blobs",
				"asset_id", asset.ID,
				"objects", removed)
			purged = append(purged, asset.ID)
		}

		if len(purged) > 0 {
			n, err := s.repository.MarkDeletedBatch(ctx, purged, s.now().UTC())
			if err != nil {
				return total, fmt.Errorf("mark deleted: %w", err)
			}
			total += n
		}

		if len(batch) < purgeBatchSize {
			break
		}
		// A full batch where nothing purged would reselect the same rows.
		if len(purged) == 0 {
			break
		}
	}
	return total, nil
}
