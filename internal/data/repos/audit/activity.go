package audit

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

type ActivityLogRepo interface {
	Create(dbc dbctx.Context, entries []*types.ActivityLog) ([]*types.ActivityLog, error)
	GetByID(dbc dbctx.Context, entryID uuid.UUID) (*types.ActivityLog, error)
	// GetByUndoneActivityID returns the entry that reversed the given one,
	// or nil when it has not been undone.
	GetByUndoneActivityID(dbc dbctx.Context, originalID uuid.UUID) (*types.ActivityLog, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.ActivityLog, error)
}

type activityLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityLogRepo(db *gorm.DB, baseLog *logger.Logger) ActivityLogRepo {
	return &activityLogRepo{db: db, log: baseLog.With("repo", "ActivityLogRepo")}
}

func (r *activityLogRepo) Create(dbc dbctx.Context, entries []*types.ActivityLog) ([]*types.ActivityLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(entries) == 0 {
		return []*types.ActivityLog{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *activityLogRepo) GetByID(dbc dbctx.Context, entryID uuid.UUID) (*types.ActivityLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ActivityLog
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", entryID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *activityLogRepo) GetByUndoneActivityID(dbc dbctx.Context, originalID uuid.UUID) (*types.ActivityLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ActivityLog
	err := transaction.WithContext(dbc.Ctx).
		Where("undone_activity_id = ?", originalID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *activityLogRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.ActivityLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ActivityLog
	q := transaction.WithContext(dbc.Ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
