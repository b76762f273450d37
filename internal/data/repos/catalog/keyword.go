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

type KeywordRepo interface {
	Create(dbc dbctx.Context, keywords []*types.Keyword) ([]*types.Keyword, error)
	GetByID(dbc dbctx.Context, keywordID uuid.UUID) (*types.Keyword, error)
	GetByIDs(dbc dbctx.Context, keywordIDs []uuid.UUID) ([]*types.Keyword, error)
	UpdateFields(dbc dbctx.Context, keywordID uuid.UUID, fields map[string]interface{}) error
	// Attach creates the association if absent; returns true when a new row
	// was written, false when the pair already existed.
	Attach(dbc dbctx.Context, patternID, keywordID uuid.UUID) (bool, error)
	// Detach removes the association; returns false when no row existed.
	Detach(dbc dbctx.Context, patternID, keywordID uuid.UUID) (bool, error)
	ListByPatternID(dbc dbctx.Context, patternID uuid.UUID) ([]*types.Keyword, error)
	CountAssociations(dbc dbctx.Context, patternID, keywordID uuid.UUID) (int64, error)
}

type keywordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKeywordRepo(db *gorm.DB, baseLog *logger.Logger) KeywordRepo {
	return &keywordRepo{db: db, log: baseLog.With("repo", "KeywordRepo")}
}

func (r *keywordRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *keywordRepo) Create(dbc dbctx.Context, keywords []*types.Keyword) ([]*types.Keyword, error) {
	if len(keywords) == 0 {
		return []*types.Keyword{}, nil
	}
	if err := r.tx(dbc).Create(&keywords).Error; err != nil {
		return nil, err
	}
	return keywords, nil
}

func (r *keywordRepo) GetByID(dbc dbctx.Context, keywordID uuid.UUID) (*types.Keyword, error) {
	var result types.Keyword
	err := r.tx(dbc).Where("id = ?", keywordID).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *keywordRepo) GetByIDs(dbc dbctx.Context, keywordIDs []uuid.UUID) ([]*types.Keyword, error) {
	var results []*types.Keyword
	if len(keywordIDs) == 0 {
		return results, nil
	}
	if err := r.tx(dbc).Where("id IN ?", keywordIDs).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *keywordRepo) UpdateFields(dbc dbctx.Context, keywordID uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.tx(dbc).
		Model(&types.Keyword{}).
		Where("id = ?", keywordID).
		Updates(fields).Error
}

func (r *keywordRepo) Attach(dbc dbctx.Context, patternID, keywordID uuid.UUID) (bool, error) {
	row := &types.PatternKeyword{
		ID:        uuid.New(),
		PatternID: patternID,
		KeywordID: keywordID,
	}
	res := r.tx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pattern_id"}, {Name: "keyword_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *keywordRepo) Detach(dbc dbctx.Context, patternID, keywordID uuid.UUID) (bool, error) {
	res := r.tx(dbc).
		Where("pattern_id = ? AND keyword_id = ?", patternID, keywordID).
		Delete(&types.PatternKeyword{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *keywordRepo) ListByPatternID(dbc dbctx.Context, patternID uuid.UUID) ([]*types.Keyword, error) {
	var results []*types.Keyword
	err := r.tx(dbc).
		Joins("JOIN pattern_keyword pk ON pk.keyword_id = keyword.id").
		Where("pk.pattern_id = ?", patternID).
		Order("keyword.name ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *keywordRepo) CountAssociations(dbc dbctx.Context, patternID, keywordID uuid.UUID) (int64, error) {
	var count int64
	err := r.tx(dbc).
		Model(&types.PatternKeyword{}).
		Where("pattern_id = ? AND keyword_id = ?", patternID, keywordID).
		Count(&count).Error
	return count, err
}
