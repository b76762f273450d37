package catalog

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

type UploadLogRepo interface {
	Create(dbc dbctx.Context, logs []*types.UploadLog) ([]*types.UploadLog, error)
	GetByBatchID(dbc dbctx.Context, batchID uuid.UUID) (*types.UploadLog, error)
}

type uploadLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadLogRepo(db *gorm.DB, baseLog *logger.Logger) UploadLogRepo {
	return &uploadLogRepo{db: db, log: baseLog.With("repo", "UploadLogRepo")}
}

func (r *uploadLogRepo) Create(dbc dbctx.Context, logs []*types.UploadLog) ([]*types.UploadLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(logs) == 0 {
		return []*types.UploadLog{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *uploadLogRepo) GetByBatchID(dbc dbctx.Context, batchID uuid.UUID) (*types.UploadLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.UploadLog
	err := transaction.WithContext(dbc.Ctx).
		Where("batch_id = ?", batchID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}
