package http

import (
	"github.com/gin-gonic/gin"
	httpH "github.com/stitchfolk/patternhub-backend/internal/http/handlers"
	httpMW "github.com/stitchfolk/patternhub-backend/internal/http/middleware"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware

	BatchHandler    *httpH.BatchHandler
	PatternHandler  *httpH.PatternHandler
	KeywordHandler  *httpH.KeywordHandler
	ActivityHandler *httpH.ActivityHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachRequestContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAdmin())
		}

		// Admin approval
		if cfg.AuthHandler != nil {
			protected.POST("/admins/:id/approve", cfg.AuthHandler.Approve)
		}

		// Batches
		if cfg.BatchHandler != nil {
			protected.POST("/batches", cfg.BatchHandler.Ingest)
			protected.GET("/batches", cfg.BatchHandler.List)
			protected.GET("/batches/:id", cfg.BatchHandler.Get)
			protected.POST("/batches/:id/commit", cfg.BatchHandler.Commit)
			protected.POST("/batches/:id/cancel", cfg.BatchHandler.Cancel)
		}

		// Patterns
		if cfg.PatternHandler != nil {
			protected.POST("/patterns/keywords", cfg.PatternHandler.ApplyKeywords)
			protected.DELETE("/patterns/:id/keywords/:keywordID", cfg.PatternHandler.RemoveKeyword)
			protected.POST("/patterns/:id/thumbnail", cfg.PatternHandler.ReplaceThumbnail)
			protected.POST("/patterns/:id/thumbnail/transform", cfg.PatternHandler.TransformThumbnail)
			protected.POST("/patterns/:id/thumbnail/placeholder", cfg.PatternHandler.PlaceholderThumbnail)
			protected.DELETE("/patterns/:id", cfg.PatternHandler.Delete)
		}

		// Keywords
		if cfg.KeywordHandler != nil {
			protected.PUT("/keywords/:id", cfg.KeywordHandler.Rename)
		}

		// Activity log
		if cfg.ActivityHandler != nil {
			protected.GET("/activity", cfg.ActivityHandler.List)
			protected.GET("/activity/:id", cfg.ActivityHandler.Get)
			protected.POST("/activity/:id/undo", cfg.ActivityHandler.Undo)
		}
	}

	return r
}
