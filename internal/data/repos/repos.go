package repos

import (
	"gorm.io/gorm"

	"github.com/stitchfolk/patternhub-backend/internal/data/repos/admin"
	"github.com/stitchfolk/patternhub-backend/internal/data/repos/audit"
	"github.com/stitchfolk/patternhub-backend/internal/data/repos/catalog"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

type BatchRepo = catalog.BatchRepo
type PatternRepo = catalog.PatternRepo
type UploadLogRepo = catalog.UploadLogRepo
type KeywordRepo = catalog.KeywordRepo

type ActivityLogRepo = audit.ActivityLogRepo

type AdminUserRepo = admin.AdminUserRepo

func NewBatchRepo(db *gorm.DB, log *logger.Logger) BatchRepo { return catalog.NewBatchRepo(db, log) }
func NewPatternRepo(db *gorm.DB, log *logger.Logger) PatternRepo {
	return catalog.NewPatternRepo(db, log)
}
func NewUploadLogRepo(db *gorm.DB, log *logger.Logger) UploadLogRepo {
	return catalog.NewUploadLogRepo(db, log)
}
func NewKeywordRepo(db *gorm.DB, log *logger.Logger) KeywordRepo {
	return catalog.NewKeywordRepo(db, log)
}
func NewActivityLogRepo(db *gorm.DB, log *logger.Logger) ActivityLogRepo {
	return audit.NewActivityLogRepo(db, log)
}
func NewAdminUserRepo(db *gorm.DB, log *logger.Logger) AdminUserRepo {
	return admin.NewAdminUserRepo(db, log)
}
