package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/stitchfolk/patternhub-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.AdminUser{},

		&types.Batch{},
		&types.PatternRecord{},
		&types.UploadLog{},

		&types.Keyword{},
		&types.PatternKeyword{},

		&types.ActivityLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
