package app

import (
	httpH "github.com/stitchfolk/patternhub-backend/internal/http/handlers"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	Batch    *httpH.BatchHandler
	Pattern  *httpH.PatternHandler
	Keyword  *httpH.KeywordHandler
	Activity *httpH.ActivityHandler
}

func wireHandlers(log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Auth:     httpH.NewAuthHandler(log, s.Auth),
		Batch:    httpH.NewBatchHandler(log, s.Ingest, s.Batch),
		Pattern:  httpH.NewPatternHandler(log, s.Review),
		Keyword:  httpH.NewKeywordHandler(log, s.Review),
		Activity: httpH.NewActivityHandler(log, s.Activity),
	}
}
