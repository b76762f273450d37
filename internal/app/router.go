package app

import (
	"github.com/gin-gonic/gin"

	internalhttp "github.com/stitchfolk/patternhub-backend/internal/http"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, h Handlers, mw Middleware) *gin.Engine {
	return internalhttp.NewRouter(internalhttp.RouterConfig{
		Log: log,

		HealthHandler:  h.Health,
		AuthHandler:    h.Auth,
		AuthMiddleware: mw.Auth,

		BatchHandler:    h.Batch,
		PatternHandler:  h.Pattern,
		KeywordHandler:  h.Keyword,
		ActivityHandler: h.Activity,
	})
}
