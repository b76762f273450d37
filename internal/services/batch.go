package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stitchfolk/patternhub-backend/internal/data/repos"
	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/platform/apierr"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/gcp"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

// BatchDetail bundles a batch with its upload log and current patterns for the
// review screen.
type BatchDetail struct {
	Batch     *types.Batch           `json:"batch"`
	UploadLog *types.UploadLog       `json:"upload_log"`
	Patterns  []*types.PatternRecord `json:"patterns"`
}

type BatchService interface {
	GetByID(ctx context.Context, batchID uuid.UUID) (*BatchDetail, error)
	List(ctx context.Context, limit, offset int) ([]*types.Batch, error)

	// Commit publishes every surviving pattern of a staged batch and flips
	// the batch to committed. Rejects non-staged batches with Conflict.
	Commit(ctx context.Context, actorID uuid.UUID, batchID uuid.UUID) (*types.Batch, error)

	// Cancel discards a staged batch: rows and storage objects of every
	// surviving pattern, then the status flip. Irreversible.
	Cancel(ctx context.Context, actorID uuid.UUID, batchID uuid.UUID) (*types.Batch, error)
}

type batchService struct {
	db         *gorm.DB
	log        *logger.Logger
	batches    repos.BatchRepo
	patterns   repos.PatternRepo
	uploadLogs repos.UploadLogRepo
	bucket     gcp.BucketService
	activity   ActivityService
}

func NewBatchService(
	db *gorm.DB,
	baseLog *logger.Logger,
	batches repos.BatchRepo,
	patterns repos.PatternRepo,
	uploadLogs repos.UploadLogRepo,
	bucket gcp.BucketService,
	activity ActivityService,
) BatchService {
	return &batchService{
		db:         db,
		log:        baseLog.With("service", "BatchService"),
		batches:    batches,
		patterns:   patterns,
		uploadLogs: uploadLogs,
		bucket:     bucket,
		activity:   activity,
	}
}

func (s *batchService) GetByID(ctx context.Context, batchID uuid.UUID) (*BatchDetail, error) {
	dbc := dbctx.Context{Ctx: ctx}
	batch, err := s.batches.GetByID(dbc, batchID)
	if err != nil {
		return nil, apierr.Persistence("batch_lookup_failed", err)
	}
	if batch == nil {
		return nil, apierr.NotFound("batch_not_found", fmt.Errorf("batch %s not found", batchID))
	}
	uploadLog, err := s.uploadLogs.GetByBatchID(dbc, batchID)
	if err != nil {
		return nil, apierr.Persistence("upload_log_lookup_failed", err)
	}
	patterns, err := s.patterns.GetByBatchID(dbc, batchID)
	if err != nil {
		return nil, apierr.Persistence("pattern_lookup_failed", err)
	}
	return &BatchDetail{Batch: batch, UploadLog: uploadLog, Patterns: patterns}, nil
}

func (s *batchService) List(ctx context.Context, limit, offset int) ([]*types.Batch, error) {
	batches, err := s.batches.List(dbctx.Context{Ctx: ctx}, limit, offset)
	if err != nil {
		return nil, apierr.Persistence("batch_list_failed", err)
	}
	return batches, nil
}

func (s *batchService) Commit(ctx context.Context, actorID uuid.UUID, batchID uuid.UUID) (*types.Batch, error) {
	var committed *types.Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		batch, err := s.lockStaged(dbc, batchID)
		if err != nil {
			return err
		}
		// Clearing an already-cleared flag is a no-op, so an interrupted
		// commit is safe to retry.
		if err := s.patterns.ClearStagedByBatchID(dbc, batchID); err != nil {
			return apierr.Persistence("commit_clear_failed", err)
		}
		if err := s.batches.UpdateFields(dbc, batchID, map[string]interface{}{
			"status": types.BatchStatusCommitted,
		}); err != nil {
			return apierr.Persistence("commit_status_failed", err)
		}
		batch.Status = types.BatchStatusCommitted
		committed = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, actorID, committed, types.ActionBatchCommit,
		fmt.Sprintf("Committed batch %q", committed.SourceName))
	return committed, nil
}

func (s *batchService) Cancel(ctx context.Context, actorID uuid.UUID, batchID uuid.UUID) (*types.Batch, error) {
	var cancelled *types.Batch
	var orphans []*types.PatternRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		batch, err := s.lockStaged(dbc, batchID)
		if err != nil {
			return err
		}
		patterns, err := s.patterns.GetByBatchID(dbc, batchID)
		if err != nil {
			return apierr.Persistence("pattern_lookup_failed", err)
		}
		if len(patterns) > 0 {
			ids := make([]uuid.UUID, 0, len(patterns))
			for _, p := range patterns {
				ids = append(ids, p.ID)
			}
			if err := s.patterns.FullDeleteByIDs(dbc, ids); err != nil {
				return apierr.Persistence("cancel_delete_failed", err)
			}
		}
		if err := s.batches.UpdateFields(dbc, batchID, map[string]interface{}{
			"status": types.BatchStatusCancelled,
		}); err != nil {
			return apierr.Persistence("cancel_status_failed", err)
		}
		batch.Status = types.BatchStatusCancelled
		cancelled = batch
		orphans = patterns
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Storage cleanup after the rows are gone. Failures leave unreferenced
	// objects only, never dangling records.
	for _, p := range orphans {
		s.deleteObjects(ctx, p)
	}

	s.recordTransition(ctx, actorID, cancelled, types.ActionBatchCancel,
		fmt.Sprintf("Cancelled batch %q", cancelled.SourceName))
	return cancelled, nil
}

// lockStaged row-locks the batch and verifies it is still staged. Holding the
// lock through the transaction serializes concurrent commit/cancel attempts.
func (s *batchService) lockStaged(dbc dbctx.Context, batchID uuid.UUID) (*types.Batch, error) {
	batch, err := s.batches.LockByID(dbc, batchID)
	if err != nil {
		return nil, apierr.Persistence("batch_lock_failed", err)
	}
	if batch == nil {
		return nil, apierr.NotFound("batch_not_found", fmt.Errorf("batch %s not found", batchID))
	}
	if batch.Status != types.BatchStatusStaged {
		return nil, apierr.Conflict("batch_not_staged",
			fmt.Errorf("batch %s is %s, not staged", batchID, batch.Status))
	}
	return batch, nil
}

func (s *batchService) deleteObjects(ctx context.Context, p *types.PatternRecord) {
	if p.FileKey != "" {
		if err := s.bucket.DeleteFile(ctx, gcp.BucketCategoryPattern, p.FileKey); err != nil {
			s.log.Error("pattern object delete failed", "pattern_id", p.ID, "key", p.FileKey, "error", err)
		}
	}
	if p.ThumbnailKey != nil && *p.ThumbnailKey != "" {
		if err := s.bucket.DeleteFile(ctx, gcp.BucketCategoryThumbnail, *p.ThumbnailKey); err != nil {
			s.log.Error("thumbnail object delete failed", "pattern_id", p.ID, "key", *p.ThumbnailKey, "error", err)
		}
	}
}

func (s *batchService) recordTransition(ctx context.Context, actorID uuid.UUID, batch *types.Batch, kind, description string) {
	if s.activity == nil {
		return
	}
	details, _ := json.Marshal(map[string]interface{}{
		"source_name": batch.SourceName,
		"status":      batch.Status,
	})
	s.activity.Record(dbctx.Context{Ctx: ctx}, RecordInput{
		ActorID:     actorID,
		ActionKind:  kind,
		TargetType:  "batch",
		TargetID:    &batch.ID,
		Description: description,
		Details:     details,
	})
}
