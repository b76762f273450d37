package app

import (
	"gorm.io/gorm"

	"github.com/stitchfolk/patternhub-backend/internal/platform/gcp"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
	"github.com/stitchfolk/patternhub-backend/internal/services"
)

type Services struct {
	Activity  services.ActivityService
	Archive   services.ArchiveService
	Dedupe    services.DuplicateDetector
	Thumbnail services.ThumbnailService
	Ingest    services.IngestService
	Batch     services.BatchService
	Review    services.ReviewService
	Auth      services.AuthService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, bucket gcp.BucketService) Services {
	log.Info("Wiring services...")
	activity := services.NewActivityService(log, r.ActivityLog, r.Keyword, r.AdminUser)
	archive := services.NewArchiveService(log, cfg.PatternFileExt)
	dedupe := services.NewDuplicateDetector(log, r.Pattern)
	thumbs := services.NewThumbnailService(log)

	return Services{
		Activity:  activity,
		Archive:   archive,
		Dedupe:    dedupe,
		Thumbnail: thumbs,
		Ingest: services.NewIngestService(
			log, archive, dedupe, thumbs, bucket,
			r.Batch, r.Pattern, r.UploadLog, activity,
		),
		Batch: services.NewBatchService(
			db, log, r.Batch, r.Pattern, r.UploadLog, bucket, activity,
		),
		Review: services.NewReviewService(
			log, r.Pattern, r.Keyword, bucket, thumbs, activity,
		),
		Auth: services.NewAuthService(
			db, log, r.AdminUser, activity, cfg.JWTSecretKey, cfg.AccessTokenTTL,
		),
	}
}
