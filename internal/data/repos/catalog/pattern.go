package catalog

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

type PatternRepo interface {
	Create(dbc dbctx.Context, patterns []*types.PatternRecord) ([]*types.PatternRecord, error)
	GetByID(dbc dbctx.Context, patternID uuid.UUID) (*types.PatternRecord, error)
	GetByIDs(dbc dbctx.Context, patternIDs []uuid.UUID) ([]*types.PatternRecord, error)
	GetByBatchID(dbc dbctx.Context, batchID uuid.UUID) ([]*types.PatternRecord, error)
	UpdateFields(dbc dbctx.Context, patternID uuid.UUID, fields map[string]interface{}) error
	// ClearStagedByBatchID flips is_staged off for every pattern of the batch.
	// Clearing an already-cleared flag is a no-op, so retries are safe.
	ClearStagedByBatchID(dbc dbctx.Context, batchID uuid.UUID) error
	// FullDeleteByIDs removes the patterns and their keyword associations.
	FullDeleteByIDs(dbc dbctx.Context, patternIDs []uuid.UUID) error
	// ListCommittedNames pages file names of the committed catalog,
	// ordered by name for a stable scan.
	ListCommittedNames(dbc dbctx.Context, limit, offset int) ([]string, error)
}

type patternRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatternRepo(db *gorm.DB, baseLog *logger.Logger) PatternRepo {
	return &patternRepo{db: db, log: baseLog.With("repo", "PatternRepo")}
}

func (r *patternRepo) Create(dbc dbctx.Context, patterns []*types.PatternRecord) ([]*types.PatternRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(patterns) == 0 {
		return []*types.PatternRecord{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&patterns).Error; err != nil {
		return nil, err
	}
	return patterns, nil
}

func (r *patternRepo) GetByID(dbc dbctx.Context, patternID uuid.UUID) (*types.PatternRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.PatternRecord
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", patternID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *patternRepo) GetByIDs(dbc dbctx.Context, patternIDs []uuid.UUID) ([]*types.PatternRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PatternRecord
	if len(patternIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", patternIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *patternRepo) GetByBatchID(dbc dbctx.Context, batchID uuid.UUID) ([]*types.PatternRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PatternRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("batch_id = ?", batchID).
		Order("file_name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *patternRepo) UpdateFields(dbc dbctx.Context, patternID uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).
		Model(&types.PatternRecord{}).
		Where("id = ?", patternID).
		Updates(fields).Error
}

func (r *patternRepo) ClearStagedByBatchID(dbc dbctx.Context, batchID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(dbc.Ctx).
		Model(&types.PatternRecord{}).
		Where("batch_id = ?", batchID).
		Update("is_staged", false).Error
}

func (r *patternRepo) FullDeleteByIDs(dbc dbctx.Context, patternIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(patternIDs) == 0 {
		return nil
	}

	// Migrations run without FK constraints, so the join rows have to go
	// explicitly or they are orphaned forever.
	if err := transaction.WithContext(dbc.Ctx).
		Where("pattern_id IN ?", patternIDs).
		Delete(&types.PatternKeyword{}).Error; err != nil {
		return err
	}

	return transaction.WithContext(dbc.Ctx).
		Where("id IN ?", patternIDs).
		Delete(&types.PatternRecord{}).Error
}

func (r *patternRepo) ListCommittedNames(dbc dbctx.Context, limit, offset int) ([]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var names []string
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.PatternRecord{}).
		Where("is_staged = ?", false).
		Order("file_name ASC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("file_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}
