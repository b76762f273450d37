package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stitchfolk/patternhub-backend/internal/http/response"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
	"github.com/stitchfolk/patternhub-backend/internal/services"
)

type KeywordHandler struct {
	log    *logger.Logger
	review services.ReviewService
}

func NewKeywordHandler(log *logger.Logger, review services.ReviewService) *KeywordHandler {
	return &KeywordHandler{
		log:    log.With("handler", "KeywordHandler"),
		review: review,
	}
}

type renameKeywordRequest struct {
	Name string `json:"name" binding:"required"`
}

// PUT /api/keywords/:id
func (h *KeywordHandler) Rename(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	keywordID, ok := pathUUID(c, "id", "invalid_keyword_id")
	if !ok {
		return
	}
	var req renameKeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	keyword, err := h.review.RenameKeyword(c.Request.Context(), actor, keywordID, req.Name)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"keyword": keyword})
}
