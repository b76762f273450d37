package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stitchfolk/patternhub-backend/internal/http/response"
	"github.com/stitchfolk/patternhub-backend/internal/platform/ctxutil"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
	"github.com/stitchfolk/patternhub-backend/internal/services"
)

type PatternHandler struct {
	log    *logger.Logger
	review services.ReviewService
}

func NewPatternHandler(log *logger.Logger, review services.ReviewService) *PatternHandler {
	return &PatternHandler{
		log:    log.With("handler", "PatternHandler"),
		review: review,
	}
}

func actorID(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.AdminID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return rd.AdminID, true
}

func pathUUID(c *gin.Context, param, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

type applyKeywordsRequest struct {
	PatternIDs []uuid.UUID `json:"pattern_ids" binding:"required"`
	KeywordIDs []uuid.UUID `json:"keyword_ids" binding:"required"`
}

// POST /api/patterns/keywords
func (h *PatternHandler) ApplyKeywords(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req applyKeywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	result, err := h.review.ApplyKeywords(c.Request.Context(), actor, req.PatternIDs, req.KeywordIDs)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// DELETE /api/patterns/:id/keywords/:keywordID
func (h *PatternHandler) RemoveKeyword(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	patternID, ok := pathUUID(c, "id", "invalid_pattern_id")
	if !ok {
		return
	}
	keywordID, ok := pathUUID(c, "keywordID", "invalid_keyword_id")
	if !ok {
		return
	}
	if err := h.review.RemoveKeyword(c.Request.Context(), actor, patternID, keywordID); err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true})
}

// POST /api/patterns/:id/thumbnail (multipart field "image")
func (h *PatternHandler) ReplaceThumbnail(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	patternID, ok := pathUUID(c, "id", "invalid_pattern_id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_image", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_image", err)
		return
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_image", err)
		return
	}

	result, err := h.review.ReplaceThumbnail(c.Request.Context(), actor, patternID, raw, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, result)
}

type transformRequest struct {
	Operation string `json:"operation" binding:"required"`
}

// POST /api/patterns/:id/thumbnail/transform
func (h *PatternHandler) TransformThumbnail(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	patternID, ok := pathUUID(c, "id", "invalid_pattern_id")
	if !ok {
		return
	}
	var req transformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	op, err := services.ParseTransformOp(req.Operation)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	result, err := h.review.TransformThumbnail(c.Request.Context(), actor, patternID, op)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// POST /api/patterns/:id/thumbnail/placeholder
func (h *PatternHandler) PlaceholderThumbnail(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	patternID, ok := pathUUID(c, "id", "invalid_pattern_id")
	if !ok {
		return
	}
	result, err := h.review.PlaceholderThumbnail(c.Request.Context(), actor, patternID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// DELETE /api/patterns/:id
func (h *PatternHandler) Delete(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	patternID, ok := pathUUID(c, "id", "invalid_pattern_id")
	if !ok {
		return
	}
	if err := h.review.DeletePattern(c.Request.Context(), actor, patternID); err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true})
}
