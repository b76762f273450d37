package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stitchfolk/patternhub-backend/internal/http/response"
	"github.com/stitchfolk/patternhub-backend/internal/platform/ctxutil"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
	"github.com/stitchfolk/patternhub-backend/internal/services"
)

type ActivityHandler struct {
	log      *logger.Logger
	activity services.ActivityService
}

func NewActivityHandler(log *logger.Logger, activity services.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		log:      log.With("handler", "ActivityHandler"),
		activity: activity,
	}
}

// GET /api/activity
func (h *ActivityHandler) List(c *gin.Context) {
	limit := parsePositiveInt(c.Query("limit"), 50)
	offset := parsePositiveInt(c.Query("offset"), 0)

	entries, err := h.activity.List(dbctx.Context{Ctx: c.Request.Context()}, limit, offset)
	if err != nil {
		h.log.Error("activity list failed", "error", err)
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"activity": entries, "limit": limit, "offset": offset})
}

// GET /api/activity/:id
func (h *ActivityHandler) Get(c *gin.Context) {
	activityID, ok := pathUUID(c, "id", "invalid_activity_id")
	if !ok {
		return
	}
	entry, err := h.activity.GetByID(dbctx.Context{Ctx: c.Request.Context()}, activityID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entry": entry})
}

// POST /api/activity/:id/undo
func (h *ActivityHandler) Undo(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.AdminID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_activity_id", err)
		return
	}

	entry, err := h.activity.Undo(dbctx.Context{Ctx: c.Request.Context()}, rd.AdminID, activityID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "undo_entry": entry})
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
