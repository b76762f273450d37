package admin

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

type AdminUserRepo interface {
	Create(dbc dbctx.Context, admins []*types.AdminUser) ([]*types.AdminUser, error)
	GetByID(dbc dbctx.Context, adminID uuid.UUID) (*types.AdminUser, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.AdminUser, error)
	UpdateFields(dbc dbctx.Context, adminID uuid.UUID, fields map[string]interface{}) error
}

type adminUserRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdminUserRepo(db *gorm.DB, baseLog *logger.Logger) AdminUserRepo {
	return &adminUserRepo{db: db, log: baseLog.With("repo", "AdminUserRepo")}
}

func (r *adminUserRepo) Create(dbc dbctx.Context, admins []*types.AdminUser) ([]*types.AdminUser, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(admins) == 0 {
		return []*types.AdminUser{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}

func (r *adminUserRepo) GetByID(dbc dbctx.Context, adminID uuid.UUID) (*types.AdminUser, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.AdminUser
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", adminID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *adminUserRepo) GetByEmail(dbc dbctx.Context, email string) (*types.AdminUser, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.AdminUser
	err := transaction.WithContext(dbc.Ctx).
		Where("email = ?", email).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *adminUserRepo) UpdateFields(dbc dbctx.Context, adminID uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).
		Model(&types.AdminUser{}).
		Where("id = ?", adminID).
		Updates(fields).Error
}
