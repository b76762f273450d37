package catalog

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

type BatchRepo interface {
	Create(dbc dbctx.Context, batches []*types.Batch) ([]*types.Batch, error)
	GetByID(dbc dbctx.Context, batchID uuid.UUID) (*types.Batch, error)
	// LockByID takes a row lock so a status check and flip are atomic.
	// Requires dbc.Tx.
	LockByID(dbc dbctx.Context, batchID uuid.UUID) (*types.Batch, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.Batch, error)
	UpdateFields(dbc dbctx.Context, batchID uuid.UUID, fields map[string]interface{}) error
}

type batchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBatchRepo(db *gorm.DB, baseLog *logger.Logger) BatchRepo {
	return &batchRepo{db: db, log: baseLog.With("repo", "BatchRepo")}
}

func (r *batchRepo) Create(dbc dbctx.Context, batches []*types.Batch) ([]*types.Batch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(batches) == 0 {
		return []*types.Batch{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *batchRepo) GetByID(dbc dbctx.Context, batchID uuid.UUID) (*types.Batch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Batch
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", batchID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *batchRepo) LockByID(dbc dbctx.Context, batchID uuid.UUID) (*types.Batch, error) {
	if dbc.Tx == nil {
		return nil, errors.New("LockByID requires a db transaction")
	}

	var result types.Batch
	err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", batchID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *batchRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Batch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Batch
	q := transaction.WithContext(dbc.Ctx).Order("uploaded_at DESC")
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

func (r *batchRepo) UpdateFields(dbc dbctx.Context, batchID uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).
		Model(&types.Batch{}).
		Where("id = ?", batchID).
		Updates(fields).Error
}
