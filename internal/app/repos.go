package app

import (
	"gorm.io/gorm"

	"github.com/stitchfolk/patternhub-backend/internal/data/repos"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

type Repos struct {
	Batch       repos.BatchRepo
	Pattern     repos.PatternRepo
	UploadLog   repos.UploadLogRepo
	Keyword     repos.KeywordRepo
	ActivityLog repos.ActivityLogRepo
	AdminUser   repos.AdminUserRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Batch:       repos.NewBatchRepo(db, log),
		Pattern:     repos.NewPatternRepo(db, log),
		UploadLog:   repos.NewUploadLogRepo(db, log),
		Keyword:     repos.NewKeywordRepo(db, log),
		ActivityLog: repos.NewActivityLogRepo(db, log),
		AdminUser:   repos.NewAdminUserRepo(db, log),
	}
}
