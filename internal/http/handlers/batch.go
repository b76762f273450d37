package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/http/response"
	"github.com/stitchfolk/patternhub-backend/internal/platform/ctxutil"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
	"github.com/stitchfolk/patternhub-backend/internal/services"
)

// maxArchiveBytes bounds the multipart archive upload.
const maxArchiveBytes = 256 << 20

type BatchHandler struct {
	log    *logger.Logger
	ingest services.IngestService
	batch  services.BatchService
}

func NewBatchHandler(log *logger.Logger, ingest services.IngestService, batch services.BatchService) *BatchHandler {
	return &BatchHandler{
		log:    log.With("handler", "BatchHandler"),
		ingest: ingest,
		batch:  batch,
	}
}

// POST /api/batches (multipart field "archive")
func (h *BatchHandler) Ingest(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.AdminID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	fileHeader, err := c.FormFile("archive")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_archive", err)
		return
	}
	if fileHeader.Size > maxArchiveBytes {
		response.RespondError(c, http.StatusBadRequest, "archive_too_large", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_archive", err)
		return
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_archive", err)
		return
	}

	result, err := h.ingest.Ingest(c.Request.Context(), rd.AdminID, fileHeader.Filename, raw)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondCreated(c, result)
}

// GET /api/batches
func (h *BatchHandler) List(c *gin.Context) {
	limit := parsePositiveInt(c.Query("limit"), 50)
	offset := parsePositiveInt(c.Query("offset"), 0)

	batches, err := h.batch.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error("batch list failed", "error", err)
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"batches": batches, "limit": limit, "offset": offset})
}

// GET /api/batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_batch_id", err)
		return
	}
	detail, err := h.batch.GetByID(c.Request.Context(), batchID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// POST /api/batches/:id/commit
func (h *BatchHandler) Commit(c *gin.Context) {
	h.transition(c, h.batch.Commit)
}

// POST /api/batches/:id/cancel
func (h *BatchHandler) Cancel(c *gin.Context) {
	h.transition(c, h.batch.Cancel)
}

func (h *BatchHandler) transition(c *gin.Context, fn func(ctx context.Context, actorID, batchID uuid.UUID) (*types.Batch, error)) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.AdminID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_batch_id", err)
		return
	}
	batch, err := fn(c.Request.Context(), rd.AdminID, batchID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"batch": batch, "status": batch.Status})
}
