package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/stitchfolk/patternhub-backend/internal/data/repos"
	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/platform/apierr"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/gcp"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

// KeywordApplyResult reports a bulk apply pair by pair: attached pairs,
// already-present pairs, and pairs that failed outright.
type KeywordApplyResult struct {
	Attached int                 `json:"attached"`
	Existing int                 `json:"existing"`
	Failures []KeywordApplyError `json:"failures"`
}

type KeywordApplyError struct {
	PatternID uuid.UUID `json:"pattern_id"`
	KeywordID uuid.UUID `json:"keyword_id"`
	Error     string    `json:"error"`
}

// ThumbnailResult is the outcome of any thumbnail mutation. The URL is
// version-keyed, so a changed thumbnail always yields a new URL.
type ThumbnailResult struct {
	ThumbnailURL     string `json:"thumbnail_url"`
	EmbeddingCleared bool   `json:"embedding_cleared"`
}

type ReviewService interface {
	ApplyKeywords(ctx context.Context, actorID uuid.UUID, patternIDs, keywordIDs []uuid.UUID) (*KeywordApplyResult, error)
	RemoveKeyword(ctx context.Context, actorID uuid.UUID, patternID, keywordID uuid.UUID) error
	ReplaceThumbnail(ctx context.Context, actorID uuid.UUID, patternID uuid.UUID, raw []byte, mimeType string) (*ThumbnailResult, error)
	TransformThumbnail(ctx context.Context, actorID uuid.UUID, patternID uuid.UUID, op TransformOp) (*ThumbnailResult, error)
	PlaceholderThumbnail(ctx context.Context, actorID uuid.UUID, patternID uuid.UUID) (*ThumbnailResult, error)
	DeletePattern(ctx context.Context, actorID uuid.UUID, patternID uuid.UUID) error
	RenameKeyword(ctx context.Context, actorID uuid.UUID, keywordID uuid.UUID, newName string) (*types.Keyword, error)
}

type reviewService struct {
	log      *logger.Logger
	patterns repos.PatternRepo
	keywords repos.KeywordRepo
	bucket   gcp.BucketService
	thumbs   ThumbnailService
	activity ActivityService
}

func NewReviewService(
	baseLog *logger.Logger,
	patterns repos.PatternRepo,
	keywords repos.KeywordRepo,
	bucket gcp.BucketService,
	thumbs ThumbnailService,
	activity ActivityService,
) ReviewService {
	return &reviewService{
		log:      baseLog.With("service", "ReviewService"),
		patterns: patterns,
		keywords: keywords,
		bucket:   bucket,
		thumbs:   thumbs,
		activity: activity,
	}
}

func (s *reviewService) ApplyKeywords(ctx context.Context, actorID uuid.UUID, patternIDs, keywordIDs []uuid.UUID) (*KeywordApplyResult, error) {
	if len(patternIDs) == 0 || len(keywordIDs) == 0 {
		return nil, apierr.Validation("empty_selection",
			fmt.Errorf("need at least one pattern and one keyword"))
	}
	dbc := dbctx.Context{Ctx: ctx}

	found, err := s.patterns.GetByIDs(dbc, patternIDs)
	if err != nil {
		return nil, apierr.Persistence("pattern_lookup_failed", err)
	}
	if len(found) != len(patternIDs) {
		return nil, apierr.NotFound("pattern_not_found",
			fmt.Errorf("%d of %d patterns not found", len(patternIDs)-len(found), len(patternIDs)))
	}
	foundKeywords, err := s.keywords.GetByIDs(dbc, keywordIDs)
	if err != nil {
		return nil, apierr.Persistence("keyword_lookup_failed", err)
	}
	if len(foundKeywords) != len(keywordIDs) {
		return nil, apierr.NotFound("keyword_not_found",
			fmt.Errorf("%d of %d keywords not found", len(keywordIDs)-len(foundKeywords), len(keywordIDs)))
	}

	// One pair at a time; a failed pair is recorded and the rest continue.
	result := &KeywordApplyResult{Failures: []KeywordApplyError{}}
	for _, patternID := range patternIDs {
		for _, keywordID := range keywordIDs {
			attached, err := s.keywords.Attach(dbc, patternID, keywordID)
			if err != nil {
				s.log.Warn("keyword attach failed",
					"pattern_id", patternID, "keyword_id", keywordID, "error", err)
				result.Failures = append(result.Failures, KeywordApplyError{
					PatternID: patternID,
					KeywordID: keywordID,
					Error:     err.Error(),
				})
				continue
			}
			if attached {
				result.Attached++
			} else {
				result.Existing++
			}
		}
	}

	details, _ := json.Marshal(map[string]interface{}{
		"pattern_ids": patternIDs,
		"keyword_ids": keywordIDs,
		"attached":    result.Attached,
		"existing":    result.Existing,
		"failures":    len(result.Failures),
	})
	s.activity.Record(dbc, RecordInput{
		ActorID:     actorID,
		ActionKind:  types.ActionPatternKeywords,
		TargetType:  "pattern",
		Description: fmt.Sprintf("Applied %d keyword(s) across %d pattern(s)", len(keywordIDs), len(patternIDs)),
		Details:     details,
	})
	return result, nil
}

func (s *reviewService) RemoveKeyword(ctx context.Context, actorID uuid.UUID, patternID, keywordID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	detached, err := s.keywords.Detach(dbc, patternID, keywordID)
	if err != nil {
		return apierr.Persistence("keyword_detach_failed", err)
	}
	if !detached {
		return apierr.NotFound("association_not_found",
			fmt.Errorf("keyword %s is not attached to pattern %s", keywordID, patternID))
	}

	details, _ := json.Marshal(map[string]interface{}{
		"keyword_id": keywordID.String(),
		"detached":   true,
	})
	s.activity.Record(dbc, RecordInput{
		ActorID:     actorID,
		ActionKind:  types.ActionPatternKeywords,
		TargetType:  "pattern",
		TargetID:    &patternID,
		Description: "Removed a keyword from a pattern",
		Details:     details,
	})
	return nil
}

func (s *reviewService) ReplaceThumbnail(ctx context.Context, actorID uuid.UUID, patternID uuid.UUID, raw []byte, mimeType string) (*ThumbnailResult, error) {
	rendered, err := s.thumbs.ValidateAndRender(raw, mimeType)
	if err != nil {
		return nil, err
	}
	return s.swapThumbnail(ctx, actorID, patternID, rendered, types.ActionPatternThumbnail, "Replaced thumbnail")
}

func (s *reviewService) TransformThumbnail(ctx context.Context, actorID uuid.UUID, patternID uuid.UUID, op TransformOp) (*ThumbnailResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	record, err := s.mustGetPattern(dbc, patternID)
	if err != nil {
		return nil, err
	}
	if record.ThumbnailKey == nil || *record.ThumbnailKey == "" {
		return nil, apierr.NotFound("thumbnail_not_found",
			fmt.Errorf("pattern %s has no thumbnail to transform", patternID))
	}

	reader, err := s.bucket.DownloadFile(ctx, gcp.BucketCategoryThumbnail, *record.ThumbnailKey)
	if err != nil {
		return nil, apierr.Storage("thumbnail_download_failed", err)
	}
	current, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return nil, apierr.Storage("thumbnail_download_failed", err)
	}

	rendered, err := s.thumbs.Transform(current, op)
	if err != nil {
		return nil, err
	}
	return s.swapThumbnail(ctx, actorID, patternID, rendered, types.ActionPatternTransform,
		fmt.Sprintf("Transformed thumbnail (%s)", op))
}

func (s *reviewService) PlaceholderThumbnail(ctx context.Context, actorID uuid.UUID, patternID uuid.UUID) (*ThumbnailResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	record, err := s.mustGetPattern(dbc, patternID)
	if err != nil {
		return nil, err
	}
	rendered, err := s.thumbs.RenderPlaceholder(record.FileName)
	if err != nil {
		return nil, err
	}
	return s.swapThumbnail(ctx, actorID, patternID, rendered, types.ActionPatternThumbnail, "Generated placeholder thumbnail")
}

// swapThumbnail uploads the new PNG under a fresh versioned key, repoints the
// record, clears the embedding, then drops the old object. The old object is
// only removed after the row points at the new one.
func (s *reviewService) swapThumbnail(ctx context.Context, actorID uuid.UUID, patternID uuid.UUID, rendered []byte, actionKind, description string) (*ThumbnailResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	record, err := s.mustGetPattern(dbc, patternID)
	if err != nil {
		return nil, err
	}

	newKey := thumbnailKey(patternID)
	if err := s.bucket.UploadFile(ctx, gcp.BucketCategoryThumbnail, newKey, bytes.NewReader(rendered)); err != nil {
		return nil, apierr.Storage("thumbnail_upload_failed", err)
	}
	newURL := s.bucket.GetPublicURL(gcp.BucketCategoryThumbnail, newKey)

	if err := s.patterns.UpdateFields(dbc, patternID, map[string]interface{}{
		"thumbnail_key": newKey,
		"thumbnail_url": newURL,
		"embedding":     nil,
	}); err != nil {
		if delErr := s.bucket.DeleteFile(ctx, gcp.BucketCategoryThumbnail, newKey); delErr != nil {
			s.log.Error("orphaned thumbnail cleanup failed", "key", newKey, "error", delErr)
		}
		return nil, apierr.Persistence("thumbnail_update_failed", err)
	}

	if record.ThumbnailKey != nil && *record.ThumbnailKey != "" && *record.ThumbnailKey != newKey {
		if err := s.bucket.DeleteFile(ctx, gcp.BucketCategoryThumbnail, *record.ThumbnailKey); err != nil {
			s.log.Warn("stale thumbnail delete failed", "key", *record.ThumbnailKey, "error", err)
		}
	}

	details, _ := json.Marshal(map[string]interface{}{
		"thumbnail_key":     newKey,
		"embedding_cleared": true,
	})
	s.activity.Record(dbc, RecordInput{
		ActorID:     actorID,
		ActionKind:  actionKind,
		TargetType:  "pattern",
		TargetID:    &patternID,
		Description: description,
		Details:     details,
	})

	return &ThumbnailResult{ThumbnailURL: newURL, EmbeddingCleared: true}, nil
}

func (s *reviewService) DeletePattern(ctx context.Context, actorID uuid.UUID, patternID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	record, err := s.mustGetPattern(dbc, patternID)
	if err != nil {
		return err
	}

	if err := s.patterns.FullDeleteByIDs(dbc, []uuid.UUID{patternID}); err != nil {
		return apierr.Persistence("pattern_delete_failed", err)
	}
	if record.FileKey != "" {
		if err := s.bucket.DeleteFile(ctx, gcp.BucketCategoryPattern, record.FileKey); err != nil {
			s.log.Error("pattern object delete failed", "pattern_id", patternID, "key", record.FileKey, "error", err)
		}
	}
	if record.ThumbnailKey != nil && *record.ThumbnailKey != "" {
		if err := s.bucket.DeleteFile(ctx, gcp.BucketCategoryThumbnail, *record.ThumbnailKey); err != nil {
			s.log.Error("thumbnail object delete failed", "pattern_id", patternID, "key", *record.ThumbnailKey, "error", err)
		}
	}

	details, _ := json.Marshal(map[string]interface{}{
		"file_name": record.FileName,
	})
	s.activity.Record(dbc, RecordInput{
		ActorID:     actorID,
		ActionKind:  types.ActionPatternDelete,
		TargetType:  "pattern",
		TargetID:    &patternID,
		Description: fmt.Sprintf("Deleted pattern %q", record.FileName),
		Details:     details,
	})
	return nil
}

func (s *reviewService) RenameKeyword(ctx context.Context, actorID uuid.UUID, keywordID uuid.UUID, newName string) (*types.Keyword, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, apierr.Validation("empty_keyword_name", fmt.Errorf("keyword name cannot be empty"))
	}

	dbc := dbctx.Context{Ctx: ctx}
	keyword, err := s.keywords.GetByID(dbc, keywordID)
	if err != nil {
		return nil, apierr.Persistence("keyword_lookup_failed", err)
	}
	if keyword == nil {
		return nil, apierr.NotFound("keyword_not_found", fmt.Errorf("keyword %s not found", keywordID))
	}
	oldName := keyword.Name
	if oldName == newName {
		return keyword, nil
	}

	if err := s.keywords.UpdateFields(dbc, keywordID, map[string]interface{}{
		"name": newName,
	}); err != nil {
		if isUniqueViolation(err) {
			return nil, apierr.Conflict("keyword_name_taken",
				fmt.Errorf("keyword name %q already exists", newName))
		}
		return nil, apierr.Persistence("keyword_rename_failed", err)
	}
	keyword.Name = newName

	// Old and new names are both recorded so the rename can be undone.
	details, _ := json.Marshal(keywordUpdateDetails{
		KeywordID: keywordID.String(),
		OldName:   oldName,
		NewName:   newName,
	})
	s.activity.Record(dbc, RecordInput{
		ActorID:     actorID,
		ActionKind:  types.ActionKeywordUpdate,
		TargetType:  "keyword",
		TargetID:    &keywordID,
		Description: fmt.Sprintf("Renamed keyword %q to %q", oldName, newName),
		Details:     details,
	})
	return keyword, nil
}

func (s *reviewService) mustGetPattern(dbc dbctx.Context, patternID uuid.UUID) (*types.PatternRecord, error) {
	record, err := s.patterns.GetByID(dbc, patternID)
	if err != nil {
		return nil, apierr.Persistence("pattern_lookup_failed", err)
	}
	if record == nil {
		return nil, apierr.NotFound("pattern_not_found", fmt.Errorf("pattern %s not found", patternID))
	}
	return record, nil
}
