package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/stitchfolk/patternhub-backend/internal/data/repos"
	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/platform/apierr"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/gcp"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

// IngestResult is the complete report of one ingestion run. Per-item failures
// are recorded here, never propagated past the batch boundary.
type IngestResult struct {
	BatchID  uuid.UUID            `json:"batch_id"`
	Uploaded []types.UploadedItem `json:"uploaded"`
	Skipped  []types.SkippedItem  `json:"skipped"`
	Errors   []types.ErroredItem  `json:"errors"`
	Summary  IngestSummary        `json:"summary"`
}

type IngestSummary struct {
	Total    int `json:"total"`
	Uploaded int `json:"uploaded"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

type IngestService interface {
	// Ingest extracts the archive, stages every new pattern into a fresh
	// batch, and writes the upload log. Validation failures reject the whole
	// archive before any persistence; anything after that is per-item.
	Ingest(ctx context.Context, actorID uuid.UUID, sourceName string, archiveBytes []byte) (*IngestResult, error)
}

type ingestService struct {
	log        *logger.Logger
	archive    ArchiveService
	dedupe     DuplicateDetector
	thumbs     ThumbnailService
	bucket     gcp.BucketService
	batches    repos.BatchRepo
	patterns   repos.PatternRepo
	uploadLogs repos.UploadLogRepo
	activity   ActivityService
}

func NewIngestService(
	baseLog *logger.Logger,
	archive ArchiveService,
	dedupe DuplicateDetector,
	thumbs ThumbnailService,
	bucket gcp.BucketService,
	batches repos.BatchRepo,
	patterns repos.PatternRepo,
	uploadLogs repos.UploadLogRepo,
	activity ActivityService,
) IngestService {
	return &ingestService{
		log:        baseLog.With("service", "IngestService"),
		archive:    archive,
		dedupe:     dedupe,
		thumbs:     thumbs,
		bucket:     bucket,
		batches:    batches,
		patterns:   patterns,
		uploadLogs: uploadLogs,
		activity:   activity,
	}
}

func (s *ingestService) Ingest(ctx context.Context, actorID uuid.UUID, sourceName string, archiveBytes []byte) (*IngestResult, error) {
	dbc := dbctx.Context{Ctx: ctx}

	// Reject bad archives before anything touches a store.
	candidates, err := s.archive.Extract(archiveBytes)
	if err != nil {
		return nil, err
	}

	fresh, skipped, err := s.dedupe.Partition(dbc, candidates)
	if err != nil {
		return nil, apierr.Persistence("duplicate_scan_failed", err)
	}

	batch := &types.Batch{
		ID:         uuid.New(),
		SourceName: strings.TrimSpace(sourceName),
		UploadedAt: time.Now().UTC(),
		Status:     types.BatchStatusStaged,
	}
	if _, err := s.batches.Create(dbc, []*types.Batch{batch}); err != nil {
		return nil, apierr.Persistence("batch_create_failed", err)
	}

	result := &IngestResult{
		BatchID:  batch.ID,
		Uploaded: []types.UploadedItem{},
		Skipped:  skipped,
		Errors:   []types.ErroredItem{},
	}
	if result.Skipped == nil {
		result.Skipped = []types.SkippedItem{}
	}

	// Sequential on purpose: keeps compensation trivial and bounds load on
	// both stores. One item's failure never aborts the rest.
	for _, cand := range fresh {
		item, err := s.ingestOne(ctx, batch.ID, cand)
		if err != nil {
			s.log.Warn("candidate failed", "batch_id", batch.ID, "name", cand.FullName(), "error", err)
			result.Errors = append(result.Errors, types.ErroredItem{
				Name:  cand.FullName(),
				Error: diagnosticMessage(err),
			})
			continue
		}
		result.Uploaded = append(result.Uploaded, *item)
	}

	result.Summary = IngestSummary{
		Total:    len(candidates),
		Uploaded: len(result.Uploaded),
		Skipped:  len(result.Skipped),
		Errors:   len(result.Errors),
	}

	// Ledger write. A failure here is an internal error even though the
	// staged patterns above already exist; that window is accepted and the
	// batch stays reviewable.
	if err := s.writeUploadLog(dbc, batch.ID, result); err != nil {
		return nil, apierr.Internal("upload_log_write_failed", err)
	}

	if s.activity != nil {
		details, _ := json.Marshal(map[string]interface{}{
			"source_name": batch.SourceName,
			"uploaded":    result.Summary.Uploaded,
			"skipped":     result.Summary.Skipped,
			"errors":      result.Summary.Errors,
		})
		s.activity.Record(dbc, RecordInput{
			ActorID:     actorID,
			ActionKind:  types.ActionBatchIngest,
			TargetType:  "batch",
			TargetID:    &batch.ID,
			Description: fmt.Sprintf("Imported archive %q", batch.SourceName),
			Details:     details,
		})
	}

	return result, nil
}

// ingestOne runs the insert -> upload -> update sequence for one candidate,
// unwinding completed steps in reverse on failure so neither store keeps a
// half-ingested pattern.
func (s *ingestService) ingestOne(ctx context.Context, batchID uuid.UUID, cand CandidateEntry) (*types.UploadedItem, error) {
	dbc := dbctx.Context{Ctx: ctx}

	record := &types.PatternRecord{
		ID:            uuid.New(),
		FileName:      cand.FullName(),
		FileExtension: cand.Extension,
		Author:        parseAuthor(cand.Content),
		BatchID:       &batchID,
		IsStaged:      true,
	}
	if _, err := s.patterns.Create(dbc, []*types.PatternRecord{record}); err != nil {
		// Insert failure needs no compensation; nothing was written yet.
		return nil, apierr.Persistence("pattern_insert_failed", err)
	}

	var unwind []compensation
	fail := func(cause error) (*types.UploadedItem, error) {
		s.compensate(ctx, cand.FullName(), unwind)
		return nil, cause
	}

	fileKey := patternFileKey(record.ID, cand.Extension)
	if err := s.bucket.UploadFile(ctx, gcp.BucketCategoryPattern, fileKey, bytes.NewReader(cand.Content)); err != nil {
		unwind = append(unwind, compensation{
			name: "delete pattern row",
			run:  func() error { return s.patterns.FullDeleteByIDs(dbc, []uuid.UUID{record.ID}) },
		})
		return fail(apierr.Storage("pattern_upload_failed", err))
	}
	unwind = append(unwind,
		compensation{
			name: "delete pattern object",
			run: func() error {
				return s.bucket.DeleteFile(ctx, gcp.BucketCategoryPattern, fileKey)
			},
		},
		compensation{
			name: "delete pattern row",
			run:  func() error { return s.patterns.FullDeleteByIDs(dbc, []uuid.UUID{record.ID}) },
		},
	)

	// Thumbnail generation is best-effort: a bad preview image costs the
	// thumbnail, not the pattern.
	hadThumbnail := false
	var thumbKey string
	if len(cand.Companion) > 0 {
		thumbPNG, err := s.thumbs.RenderPreview(cand.Companion)
		if err != nil {
			s.log.Warn("preview render failed; continuing without thumbnail",
				"pattern_id", record.ID, "name", cand.FullName(), "error", err)
		} else {
			thumbKey = thumbnailKey(record.ID)
			if err := s.bucket.UploadFile(ctx, gcp.BucketCategoryThumbnail, thumbKey, bytes.NewReader(thumbPNG)); err != nil {
				s.log.Warn("thumbnail upload failed; continuing without thumbnail",
					"pattern_id", record.ID, "name", cand.FullName(), "error", err)
				thumbKey = ""
			} else {
				hadThumbnail = true
				localKey := thumbKey
				unwind = append(unwind, compensation{
					name: "delete thumbnail object",
					run: func() error {
						return s.bucket.DeleteFile(ctx, gcp.BucketCategoryThumbnail, localKey)
					},
				})
			}
		}
	}

	fields := map[string]interface{}{
		"file_key": fileKey,
		"file_url": s.bucket.GetPublicURL(gcp.BucketCategoryPattern, fileKey),
	}
	if hadThumbnail {
		fields["thumbnail_key"] = thumbKey
		fields["thumbnail_url"] = s.bucket.GetPublicURL(gcp.BucketCategoryThumbnail, thumbKey)
	}
	if err := s.patterns.UpdateFields(dbc, record.ID, fields); err != nil {
		return fail(apierr.Persistence("pattern_update_failed", err))
	}

	return &types.UploadedItem{
		Name:         cand.FullName(),
		ID:           record.ID,
		HadThumbnail: hadThumbnail,
	}, nil
}

// compensation is one undo step collected while a candidate's forward steps
// succeed. Steps run in reverse order, best-effort.
type compensation struct {
	name string
	run  func() error
}

func (s *ingestService) compensate(ctx context.Context, name string, unwind []compensation) {
	for i := len(unwind) - 1; i >= 0; i-- {
		if err := unwind[i].run(); err != nil {
			s.log.Error("compensation step failed",
				"step", unwind[i].name, "name", name, "error", err)
		}
	}
}

func (s *ingestService) writeUploadLog(dbc dbctx.Context, batchID uuid.UUID, result *IngestResult) error {
	uploaded, err := json.Marshal(result.Uploaded)
	if err != nil {
		return err
	}
	skipped, err := json.Marshal(result.Skipped)
	if err != nil {
		return err
	}
	errored, err := json.Marshal(result.Errors)
	if err != nil {
		return err
	}

	entry := &types.UploadLog{
		ID:       uuid.New(),
		BatchID:  batchID,
		Uploaded: datatypes.JSON(uploaded),
		Skipped:  datatypes.JSON(skipped),
		Errors:   datatypes.JSON(errored),
	}
	if _, err := s.uploadLogs.Create(dbc, []*types.UploadLog{entry}); err != nil {
		return err
	}

	return s.batches.UpdateFields(dbc, batchID, map[string]interface{}{
		"uploaded_count": result.Summary.Uploaded,
		"skipped_count":  result.Summary.Skipped,
		"error_count":    result.Summary.Errors,
	})
}

func patternFileKey(patternID uuid.UUID, ext string) string {
	return fmt.Sprintf("pattern/%s/file%s", patternID.String(), ext)
}

func thumbnailKey(patternID uuid.UUID) string {
	// Versioned key so replaced thumbnails never collide with what a CDN
	// already cached.
	return fmt.Sprintf("thumbnail/%s/%d.png", patternID.String(), time.Now().UnixNano())
}

// parseAuthor scans the chart's textual content for a "Designed by <name>"
// marker. Best-effort metadata: no marker, no author.
func parseAuthor(content []byte) *string {
	const marker = "designed by"
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 64*1024), 64*1024)
	lines := 0
	for sc.Scan() && lines < 200 {
		lines++
		line := strings.TrimSpace(sc.Text())
		idx := strings.Index(strings.ToLower(line), marker)
		if idx < 0 {
			continue
		}
		author := strings.TrimSpace(line[idx+len(marker):])
		author = strings.Trim(author, ":->\"' \t")
		if author != "" {
			return &author
		}
	}
	return nil
}

// diagnosticMessage turns a per-item error into the message recorded in the
// upload log, rewriting the well-known missing-migration failure into
// something an operator can act on.
func diagnosticMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist") {
		return "database schema is out of date (run migrations): " + msg
	}
	return msg
}
